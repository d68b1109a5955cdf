package finna

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// sessionBackend extends the login fake with authenticated pages.
type sessionBackend struct {
	*loginBackend
}

func newSessionBackend() *sessionBackend {
	b := &sessionBackend{loginBackend: newLoginBackend()}
	b.sessionValid.Store(true)
	return b
}

func TestLoans(t *testing.T) {
	backend := newSessionBackend()
	backend.mux.HandleFunc("/MyResearch/CheckedOut", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `
			<div class="myresearch-table">
				<div class="myresearch-row" id="record55">
					<a class="record-title">Tuntematon sotilas</a>
					<input name="renewAllIDS[]" value="renew-55"/>
					<strong>1 / 5</strong>
				</div>
			</div>`)
	})
	client := newTestClient(t, backend.mux, Options{Credentials: testCreds})

	loans, err := client.Loans(context.Background())
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.Equal(t, "55", loans[0].Id)
	require.Equal(t, "renew-55", loans[0].RenewId)
	require.Equal(t, 1, loans[0].RenewsUsed)
	require.Equal(t, 5, loans[0].RenewsTotal)
}

func TestRenewLoan(t *testing.T) {
	backend := newSessionBackend()
	var gotForm url.Values
	backend.mux.HandleFunc("/MyResearch/CheckedOut", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotForm = r.PostForm
		fmt.Fprint(w, `
			<div class="myresearch-table">
				<div class="myresearch-row" id="record55">
					<div class="alert alert-success">Renewed until 1.10.2026</div>
				</div>
			</div>`)
	})
	client := newTestClient(t, backend.mux, Options{Credentials: testCreds})

	message, err := client.RenewLoan(context.Background(), Loan{Id: "55", RenewId: "renew-55"})
	require.NoError(t, err)
	require.Equal(t, "Renewed until 1.10.2026", message)
	require.Equal(t, "renew-55", gotForm.Get("renewSelectedIDS[]"))
	require.Equal(t, "1", gotForm.Get("renewSelected"))
}

func TestFines(t *testing.T) {
	backend := newSessionBackend()
	backend.mux.HandleFunc("/MyResearch/Fines", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `
			<div class="total-balance"><span class="amount">5,00 €</span></div>
			<table class="table table-striped useraccount-table online-payment">
				<tr>
					<td class="hidden-xs">1.7.2026</td><td></td>
					<td class="balance">5,00 €</td><td>Late fee</td>
				</tr>
			</table>`)
	})
	client := newTestClient(t, backend.mux, Options{Credentials: testCreds})

	fines, err := client.Fines(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5.00, fines.TotalDue)
	require.Len(t, fines.Fines, 1)
}

func TestDefaultBuildingResolution(t *testing.T) {
	backend := newSessionBackend()
	var cardFetches atomic.Int32
	backend.mux.HandleFunc("/MyResearch/Profile", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="change-password-link">
			<a href="/LibraryCards/newPassword?id=card-1#content">change</a>
		</div>`)
	})
	backend.mux.HandleFunc("/LibraryCards/editCard/card-1", func(w http.ResponseWriter, r *http.Request) {
		cardFetches.Add(1)
		fmt.Fprint(w, `<select id="login_target">
			<option value="vaski" selected="selected">Vaski-kirjastot</option>
		</select>`)
	})
	backend.mux.HandleFunc("/Content/organisations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `
			<div class="organisations list-group"></div>
			<div class="organisations list-group">
				<a data-link="0" data-organisation="helmet" data-organisation-name="Helmet"></a>
				<a data-link="0" data-organisation="vaski" data-organisation-name="Vaski-kirjastot"></a>
			</div>`)
	})
	client := newTestClient(t, backend.mux, Options{Credentials: testCreds})

	building, err := client.DefaultBuilding(context.Background())
	require.NoError(t, err)
	require.Equal(t, &Building{Id: "0/vaski/", Name: "Vaski-kirjastot"}, building)

	// resolved once, then served from the client cache
	again, err := client.DefaultBuilding(context.Background())
	require.NoError(t, err)
	require.Equal(t, building, again)
	require.EqualValues(t, 1, cardFetches.Load())
}

func TestSearchRequest(t *testing.T) {
	backend := newSessionBackend()
	var gotQuery url.Values
	backend.mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"resultCount": 0, "records": []}`)
	})
	client := newTestClient(t, backend.mux, Options{})

	result, err := client.Search(context.Background(), SearchOptions{
		Query:    "kivi",
		Building: &Building{Id: "0/vaski/"},
	})
	require.NoError(t, err)
	require.Zero(t, result.ResultCount)

	require.Equal(t, "kivi", gotQuery.Get("lookfor"))
	require.Equal(t, "20", gotQuery.Get("limit"))
	require.Equal(t, "1", gotQuery.Get("page"))
	require.Equal(t, `~building:"0/vaski/"`, gotQuery.Get("filter"))
	require.Equal(t, recordKeys, gotQuery["field[]"])

	// asking for the backing record widens the projection
	_, err = client.Search(context.Background(), SearchOptions{
		Query:          "kivi",
		Building:       &Building{Id: "0/vaski/"},
		IncludeRawData: true,
	})
	require.NoError(t, err)
	require.Equal(t, append(append([]string{}, recordKeys...), rawDataKey), gotQuery["field[]"])
}

func TestSearchResolvesDefaultBuilding(t *testing.T) {
	backend := newLoginBackend()
	var gotQuery url.Values
	backend.mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"resultCount": 0, "records": []}`)
	})
	backend.mux.HandleFunc("/MyResearch/Profile", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="change-password-link">
			<a href="/LibraryCards/newPassword?id=card-1#content">change</a>
		</div>`)
	})
	backend.mux.HandleFunc("/LibraryCards/editCard/card-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<select id="login_target">
			<option value="vaski" selected="selected">Vaski-kirjastot</option>
		</select>`)
	})
	backend.mux.HandleFunc("/Content/organisations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `
			<div class="organisations list-group"></div>
			<div class="organisations list-group">
				<a data-link="0" data-organisation="vaski" data-organisation-name="Vaski-kirjastot"></a>
			</div>`)
	})
	client := newTestClient(t, backend.mux, Options{Credentials: testCreds})

	// the session starts out invalid: searching must first recover it,
	// then resolve the active card's building to scope the query
	result, err := client.Search(context.Background(), SearchOptions{Query: "kivi"})
	require.NoError(t, err)
	require.Zero(t, result.ResultCount)
	require.EqualValues(t, 1, backend.logins.Load())
	require.Positive(t, backend.probes.Load())
	require.Equal(t, `~building:"0/vaski/"`, gotQuery.Get("filter"))
}

func TestMatchBuilding(t *testing.T) {
	buildings := []Building{
		{Id: "0/12/", Name: "City Library - 12"},
		{Id: "0/vaski/", Name: "Vaski-kirjastot"},
	}

	// the chain name sheds its trailing code suffix before comparing
	match := matchBuilding(buildings, UserType{Id: "vaski", Name: "Vaski-kirjastot - vaski"})
	require.Equal(t, &buildings[1], match)

	// display names match as written; a genuine "- 12" in the name is not
	// a suffix to strip
	require.Nil(t, matchBuilding(buildings, UserType{Id: "12", Name: "City Library"}))
}

func TestResourceInfoNotFound(t *testing.T) {
	backend := newSessionBackend()
	backend.mux.HandleFunc("/api/v1/record", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultCount": 0, "records": []}`)
	})
	client := newTestClient(t, backend.mux, Options{})

	_, err := client.ResourceInfo(context.Background(), "nope.1", false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMakeHold(t *testing.T) {
	backend := newSessionBackend()
	backend.mux.HandleFunc("/Record/r1/AjaxTab", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a class="placehold btn btn-primary hidden-print"
			href="/Record/r1/Hold?id=r1&hashKey=hk-1#tab">hold</a>`)
	})
	var gotForm url.Values
	backend.mux.HandleFunc("/Record/r1/Hold", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotForm = r.PostForm
		require.Equal(t, "hk-1", r.URL.Query().Get("hashKey"))
		w.Header().Set("Location", "/MyResearch/Holds")
		w.WriteHeader(http.StatusFound)
	})
	client := newTestClient(t, backend.mux, Options{Credentials: testCreds})

	err := client.MakeHold(context.Background(), "r1", HoldRequest{
		HoldingTypeId:    "0",
		PickupLocationId: "loc-9",
		RequiredBy:       "31.12.2026",
	})
	require.NoError(t, err)
	require.Equal(t, "loc-9", gotForm.Get("gatheredDetails[pickUpLocation]"))
	require.Equal(t, "31.12.2026", gotForm.Get("gatheredDetails[requiredBy]"))
}

func TestCancelHold(t *testing.T) {
	backend := newSessionBackend()
	var gotForm url.Values
	backend.mux.HandleFunc("/MyResearch/Holds", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotForm = r.PostForm
		fmt.Fprint(w, `<div class="flash-message alert alert-success">Cancelled.</div>`)
	})
	client := newTestClient(t, backend.mux, Options{Credentials: testCreds})

	err := client.CancelHold(context.Background(), Hold{Id: "h1", ActionId: "act-1", Cancellable: true})
	require.NoError(t, err)
	require.Equal(t, "act-1", gotForm.Get("cancelSelectedIDS[]"))
	require.Equal(t, "1", gotForm.Get("cancelSelected"))
}

func TestLibraries(t *testing.T) {
	// listing service points needs no session, so a bare mux suffices
	mux := http.NewServeMux()
	mux.HandleFunc("/AJAX/JSON", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "getOrganisationInfo", r.URL.Query().Get("method"))
		require.Equal(t, "vaski", r.URL.Query().Get("parent[id]"))
		fmt.Fprint(w, `{"data": {"list": [
			{"id": "1", "name": "Main Library", "type": "library"},
			{"id": "2", "name": "Book Bus", "type": "mobile"}
		]}}`)
	})
	client := newTestClient(t, mux, Options{})

	libraries, err := client.Libraries(context.Background(), Building{Id: "0/vaski/"})
	require.NoError(t, err)
	require.Len(t, libraries, 2)
	require.Equal(t, LibraryTypeMobile, libraries[1].Type)
}
