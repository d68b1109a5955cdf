package finna

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/codes"
)

// the portal signals a successful credential submission with this exact
// status; anything else means the credentials were rejected
const loginSuccessStatus = 205

// Login clears the cookie store, fetches a fresh CSRF token from the login
// page and submits the credential form. When fetchUserDetails is set the
// account profile is fetched as well (resolving and caching the default
// building as a side effect) and returned.
func (c *Client) Login(ctx context.Context, creds Credentials, fetchUserDetails bool) (*User, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	c.mu.Lock()
	c.creds = creds
	c.cachedBuilding = nil
	c.mu.Unlock()

	user, err := c.login(ctx, creds, fetchUserDetails)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return user, nil
}

func (c *Client) login(ctx context.Context, creds Credentials, fetchUserDetails bool) (*User, error) {
	csrf, err := c.fetchLoginCSRF(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"username":           {creds.Username},
		"password":           {creds.Password},
		"target":             {creds.UserType.Id},
		"auth_method":        {"MultiILS"},
		"layout":             {"lightbox"},
		"csrf":               {csrf},
		"processLogin":       {"Kirjaudu"},
		"secondary_username": {""},
	}
	loginUrl := c.url("MyResearch/Home?layout=lightbox&lbreferer=https%3A%2F%2F" +
		c.baseUrl.Hostname() + "%2FMyResearch%2FUserLogin")
	res, err := c.post(ctx, true, true, loginUrl, form)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != loginSuccessStatus {
		return nil, ErrInvalidCredentials
	}

	if !fetchUserDetails {
		c.notifyAuthChange(nil, nil)
		return nil, nil
	}

	user, err := c.AccountDetails(ctx)
	if err != nil {
		return nil, err
	}
	c.notifyAuthChange(user, nil)
	return user, nil
}

func (c *Client) fetchLoginCSRF(ctx context.Context) (string, error) {
	c.resetJar("")

	res, err := c.get(ctx, true, true, c.url("MyResearch/UserLogin?layout=lightbox"))
	if err != nil {
		return "", err
	}
	if err := expectOK(res); err != nil {
		return "", fmt.Errorf("fetch login page: %w", err)
	}
	return parseCSRF(res.String())
}

// UserTypes lists the selectable library systems on the login page. This is
// an anonymous operation and bypasses session validation.
func (c *Client) UserTypes(ctx context.Context) ([]UserType, error) {
	ctx, span := tracer.Start(ctx, "client:UserTypes")
	defer span.End()

	res, err := c.get(ctx, true, true, c.url("MyResearch/UserLogin?layout=lightbox"))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return parseUserTypes(res.String()), nil
}

// probeSession issues the lightweight authenticated probe. A transport
// failure is returned as is; a non-2xx status comes back as a StatusError,
// which is the "session invalid" signal.
func (c *Client) probeSession(ctx context.Context) error {
	res, err := c.get(ctx, true, true, c.url("AJAX/JSON?method=getUserTransactions"))
	if err != nil {
		return err
	}
	if !res.IsSuccess() {
		return &StatusError{Code: res.StatusCode()}
	}
	return nil
}

// ValidateSession checks that the current session is still accepted by the
// portal, silently re-logging in with the stored credentials at most once.
// The retry bound is strict: one probe, at most one re-login, one
// retry-probe. A second probe failure surfaces as ErrSessionInvalid; a
// re-login failure is returned as is.
func (c *Client) ValidateSession(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:ValidateSession")
	defer span.End()

	err := c.probeSession(ctx)
	if err == nil {
		return nil
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		// transport failure, not a session problem: no re-login
		span.SetStatus(codes.Error, "session probe transport failure")
		return err
	}

	if _, loginErr := c.login(ctx, c.credentials(), false); loginErr != nil {
		span.SetStatus(codes.Error, "re-login failed")
		return loginErr
	}
	if retryErr := c.probeSession(ctx); retryErr != nil {
		span.SetStatus(codes.Error, "session invalid after re-login")
		return fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}
	return nil
}

// preCheck guards every authenticated operation with the
// validate-or-relogin-then-retry-once policy.
func (c *Client) preCheck(ctx context.Context) error {
	return c.ValidateSession(ctx)
}
