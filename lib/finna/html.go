package finna

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"openfinna-go/lib/htmlutil"
	"openfinna-go/lib/textutil"
	"openfinna-go/lib/timezone"
)

// Extraction layer: pure functions mapping one response shape to one domain
// entity or list thereof. Selectors and field names are tied to the
// portal's markup; when that markup changes these functions fail with a
// localized ParseError (for required structure) or degrade to zero values
// (for optional fields), never with an authentication failure.

var (
	renewCountRegex = regexp.MustCompile(`([0-9]+/[0-9]+)`)
	dateRegex       = regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d+)`)
	digitsRegex     = regexp.MustCompile(`[0-9]+`)
	hashKeyRegex    = regexp.MustCompile(`hashKey=([^#&]+)`)
	cardIdRegex     = regexp.MustCompile(`id=([^#&]+)`)
)

const portalDateLayout = "2.1.2006"

func parseDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// selectionText flattens a selection's visible text into one clean line.
func selectionText(s *goquery.Selection) string {
	var b strings.Builder
	for _, node := range s.Nodes {
		b.WriteString(htmlutil.GetText(node))
	}
	return htmlutil.CleanText(b.String())
}

func parsePortalDate(text string) (time.Time, bool) {
	m := dateRegex.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(portalDateLayout, m[1], timezone.Location)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseCSRF locates the hidden login form token. Without it a credential
// submission cannot proceed, so absence is a hard parse error.
func parseCSRF(html string) (string, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return "", err
	}
	token := doc.Find("input[name=csrf]").First().AttrOr("value", "")
	if token == "" {
		return "", &ParseError{Section: "csrf token"}
	}
	return token, nil
}

func parseUserTypes(html string) []UserType {
	doc, err := parseDocument(html)
	if err != nil {
		return nil
	}
	var types []UserType
	doc.Find("[name=target]").First().Find("option").Each(func(_ int, option *goquery.Selection) {
		types = append(types, UserType{
			Id:   option.AttrOr("value", ""),
			Name: selectionText(option),
		})
	})
	return types
}

// parseUserDetails maps the profile page to a User. Every field is
// independently optional: a missing element leaves the output field unset.
func parseUserDetails(html string) User {
	var user User
	doc, err := parseDocument(html)
	if err != nil {
		return user
	}

	if name := doc.Find(".username.login-text").First(); name.Length() > 0 {
		user.Name = selectionText(name)
		user.LibraryPreferences.FullName = user.Name
	}

	libraryForm := doc.Find("#profile_library_form").First()
	if libraryForm.Length() > 0 {
		values := libraryForm.Find(".profile-text-value")
		if values.Length() > 4 {
			user.LibraryPreferences.FirstName = selectionText(values.Eq(0))
			user.LibraryPreferences.Surname = selectionText(values.Eq(1))
			user.LibraryPreferences.Address = selectionText(values.Eq(2))
			user.LibraryPreferences.Zipcode = selectionText(values.Eq(3))
			user.LibraryPreferences.City = selectionText(values.Eq(4))
		}
		user.LibraryPreferences.PhoneNumber = doc.Find(".profile_tel").First().AttrOr("value", "")
		user.LibraryPreferences.Email = doc.Find(".profile_email").First().AttrOr("value", "")
	}

	if doc.Find("form[name=my_profile_form]").Length() > 0 {
		user.PortalPreferences.Email = doc.Find("input[name=email]").First().AttrOr("value", "")
		user.PortalPreferences.Nickname = doc.Find("input[name=finna_nickname]").First().AttrOr("value", "")
	}

	return user
}

// parseBuildings extracts the branch/consortium list from the organisations
// page. The page carries two organisation lists; the second one holds the
// building-scoped entries.
func parseBuildings(html string) []Building {
	doc, err := parseDocument(html)
	if err != nil {
		return nil
	}
	lists := doc.Find(".organisations.list-group")
	if lists.Length() < 2 {
		return nil
	}
	var buildings []Building
	lists.Eq(1).Find(`[data-link="0"]`).Each(func(_ int, org *goquery.Selection) {
		id, hasId := org.Attr("data-organisation")
		name, hasName := org.Attr("data-organisation-name")
		if hasId && hasName {
			buildings = append(buildings, Building{
				Id:   "0/" + id + "/",
				Name: name,
			})
		}
	})
	return buildings
}

// parseRenewResult finds the renewal outcome banner of one loan's row in
// the returned loans page. The success banner's text is the renew message;
// any failure banner text is surfaced as an error.
func parseRenewResult(html string, loan Loan) (string, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return "", err
	}
	table := doc.Find(".myresearch-table").First()
	if table.Length() == 0 {
		return "", &ParseError{Section: "loan table"}
	}

	var message string
	var resultErr error
	found := false
	table.Find(".myresearch-row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		recordId := strings.Replace(row.AttrOr("id", ""), "record", "", 1)
		if recordId != loan.Id {
			return true
		}
		found = true
		banner := row.Find(".alert").First()
		if banner.Length() > 0 {
			text := htmlutil.CleanText(banner.Text())
			if banner.HasClass("alert-success") {
				message = text
			} else {
				resultErr = &RenewError{Message: text}
			}
			return false
		}
		if headerMsg := doc.Find(".flash-message.alert").First(); headerMsg.Length() > 0 {
			resultErr = &RenewError{Message: htmlutil.CleanText(headerMsg.Text())}
		} else {
			resultErr = &RenewError{Message: "renew failed"}
		}
		return false
	})
	if resultErr != nil {
		return "", resultErr
	}
	if !found {
		return "", &RenewError{Message: "renew failed"}
	}
	return message, nil
}

// parseHashKey pulls the single-use hold authorization token out of the
// place-hold button's link on the holdings tab.
func parseHashKey(html string) (string, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return "", err
	}
	href := doc.Find(".placehold.btn.btn-primary.hidden-print").First().AttrOr("href", "")
	m := hashKeyRegex.FindStringSubmatch(href)
	if m == nil {
		return "", &ParseError{Section: "hash key"}
	}
	return m[1], nil
}

// parseHoldingDetails maps the hold-placement form. The holding-type
// selector is required; the remaining flags reflect presence of the
// respective form controls.
func parseHoldingDetails(html string) (HoldingDetails, error) {
	var details HoldingDetails
	doc, err := parseDocument(html)
	if err != nil {
		return details, err
	}

	groupSelect := doc.Find("#requestGroupId").First()
	if groupSelect.Length() == 0 {
		return details, &ParseError{Section: "holding type selector"}
	}
	groupSelect.Find("option").Each(func(_ int, option *goquery.Selection) {
		details.HoldingTypes = append(details.HoldingTypes, HoldingType{
			Id:   option.AttrOr("value", ""),
			Name: selectionText(option),
		})
	})

	details.Info = selectionText(doc.Find(".helptext").First())
	details.HasComments = doc.Find(`textarea[name="gatheredDetails[comment]"]`).Length() > 0
	details.HasPartSelection = doc.Find(`select[name="gatheredDetails[part]"]`).Length() > 0
	details.DateSelectionDefault = doc.Find(`input[name="gatheredDetails[requiredBy]"]`).First().AttrOr("value", "")
	return details, nil
}

// parseHomeLibrary reads the currently selected default pickup location
// from the profile page.
func parseHomeLibrary(html string) (*PickupLocation, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	homeLib := doc.Find("#home_library").First()
	if homeLib.Length() == 0 {
		return nil, &ParseError{Section: "home library selector"}
	}
	selected := homeLib.Find(`[selected=selected]`).First()
	location := &PickupLocation{}
	if selected.Length() > 0 {
		location.Name = selectionText(selected)
		location.Id = selected.AttrOr("value", "")
	}
	return location, nil
}

func parseHomeLibraries(html string) ([]PickupLocation, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	homeLib := doc.Find("#home_library").First()
	if homeLib.Length() == 0 {
		return nil, &ParseError{Section: "home library selector"}
	}
	var locations []PickupLocation
	homeLib.Find("option").Each(func(_ int, option *goquery.Selection) {
		locations = append(locations, PickupLocation{
			Id:   option.AttrOr("value", ""),
			Name: selectionText(option),
		})
	})
	return locations, nil
}

// parseActionSuccess reports whether the page carries the success flash
// banner form submissions (pickup location change, hold cancellation)
// confirm with.
func parseActionSuccess(html string) bool {
	doc, err := parseDocument(html)
	if err != nil {
		return false
	}
	return doc.Find(".flash-message.alert.alert-success").Length() > 0
}

// parseFines maps the fees page. A fine is only retained once a valid
// price has been parsed; unparseable rows are dropped, not errors.
func parseFines(html string) Fines {
	fines := Fines{Currency: "€"}
	doc, err := parseDocument(html)
	if err != nil {
		return fines
	}

	payable := doc.Find(".text-right.online-payment-data").First().Find(".amount").First()
	if v, ok := textutil.ParsePrice(payable.Text()); ok {
		fines.PayableDue = v
	}
	total := doc.Find(".total-balance").First().Find(".amount").First()
	if v, ok := textutil.ParsePrice(total.Text()); ok {
		fines.TotalDue = v
	}

	table := doc.Find(".table.table-striped.useraccount-table.online-payment").First()
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if _, hasClass := row.Attr("class"); hasClass || row.HasClass("headers") {
			return
		}
		fine := Fine{Price: PriceNotSet}
		if v, ok := textutil.ParsePrice(row.Find(".balance").First().Text()); ok {
			fine.Price = v
		}
		if date, ok := parsePortalDate(row.Find(".hidden-xs").First().Text()); ok {
			fine.RegistrationDate = date
		}
		cells := row.Find("td")
		if cells.Length() > 3 {
			fine.Description = selectionText(cells.Eq(3))
		}
		if fine.Price != PriceNotSet {
			fines.Fines = append(fines.Fines, fine)
		}
	})
	return fines
}

// parseCurrentCardId pulls the active library card id out of the password
// change link on the profile page; "" when the link is absent.
func parseCurrentCardId(html string) string {
	doc, err := parseDocument(html)
	if err != nil {
		return ""
	}
	href := doc.Find(".change-password-link").First().Find("a").First().AttrOr("href", "")
	m := cardIdRegex.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}

// parseActiveChain finds the library chain the card is registered to on the
// card edit page.
func parseActiveChain(html string) (*UserType, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	targetList := doc.Find("#login_target").First()
	if targetList.Length() == 0 {
		return nil, &ParseError{Section: "login target selector"}
	}
	var chain *UserType
	targetList.Find("option").EachWithBreak(func(_ int, option *goquery.Selection) bool {
		if option.AttrOr("selected", "") == "selected" {
			chain = &UserType{
				Id:   option.AttrOr("value", ""),
				Name: selectionText(option),
			}
			return false
		}
		return true
	})
	if chain == nil {
		return nil, &ParseError{Section: "active chain"}
	}
	return chain, nil
}

// rowRecordId strips the fixed prefix off a loan/hold row's own id
// attribute.
func rowRecordId(row *goquery.Selection) string {
	return strings.Replace(row.AttrOr("id", ""), "record", "", 1)
}

// rowFormValue tries the given form-input names in order; the first
// non-empty value wins.
func rowFormValue(row *goquery.Selection, names ...string) (value string, disabled bool) {
	for _, name := range names {
		input := row.Find(`input[name="` + name + `"]`).First()
		if input.Length() == 0 {
			continue
		}
		_, disabled = input.Attr("disabled")
		if v := input.AttrOr("value", ""); v != "" {
			return v, disabled
		}
	}
	return "", disabled
}

func rowResource(row *goquery.Selection, id, origin string) Resource {
	resource := Resource{Id: id}
	if title := row.Find(".record-title").First(); title.Length() > 0 {
		resource.Title = selectionText(title)
	}
	if metadata := row.Find(".record-core-metadata").First(); metadata.Length() > 0 {
		resource.Author = selectionText(metadata.Find("a").First())
	}
	resource.Type = selectionText(row.Find(".label-info").First())
	if cover := row.Find(".recordcover").First(); cover.Length() > 0 {
		src := strings.ReplaceAll(cover.AttrOr("src", ""), "\\/", "/")
		if src != "" {
			resource.Image = origin + src
		}
	}
	return resource
}

// parseLoans maps the checked-out page's record table. Regex-sourced
// numeric fields (renew counts, due dates) default to zero values on
// no-match: a missing count is data loss, not a protocol failure.
func parseLoans(html, origin string) []Loan {
	doc, err := parseDocument(html)
	if err != nil {
		return nil
	}
	table := doc.Find(".myresearch-table").First()
	if table.Length() == 0 {
		return nil
	}

	var loans []Loan
	table.Find(".myresearch-row").Each(func(_ int, row *goquery.Selection) {
		recordId := rowRecordId(row)
		loan := Loan{
			Id:       recordId,
			Resource: rowResource(row, recordId, origin),
		}
		loan.RenewId, _ = rowFormValue(row, "renewAllIDS[]", "selectAllIDS[]")

		row.Find("strong").Each(func(_ int, text *goquery.Selection) {
			if m := renewCountRegex.FindStringSubmatch(strings.ReplaceAll(text.Text(), " ", "")); m != nil {
				parts := strings.Split(m[1], "/")
				loan.RenewsUsed, _ = strconv.Atoi(parts[0])
				loan.RenewsTotal, _ = strconv.Atoi(parts[1])
			} else if date, ok := parsePortalDate(text.Text()); ok {
				loan.DueDate = date
			}
		})

		loans = append(loans, loan)
	})
	return loans
}

// The hold status is not an explicit field in the response: it is derived
// from presence/absence of specific markup fragments. The derivation is an
// ordered decision table, evaluated top to bottom; the first matching rule
// wins and future markup changes should touch only this table.
var holdStatusTable = []struct {
	status  HoldStatus
	matches func(row *goquery.Selection, cancellable bool) bool
}{
	{
		status: HoldStatusInTransit,
		matches: func(row *goquery.Selection, cancellable bool) bool {
			return row.Find(".text-success").Length() > 0 && !cancellable
		},
	},
	{
		status: HoldStatusAvailable,
		matches: func(row *goquery.Selection, cancellable bool) bool {
			return row.Find(".alert.alert-success").Length() > 0 && !cancellable
		},
	},
}

func parseHolds(html, origin string) []Hold {
	doc, err := parseDocument(html)
	if err != nil {
		return nil
	}
	table := doc.Find(".myresearch-table").First()
	if table.Length() == 0 {
		return nil
	}

	var holds []Hold
	table.Find(".myresearch-row").Each(func(_ int, row *goquery.Selection) {
		hold := Hold{Status: HoldStatusWaiting}
		hold.PickupData.ReservationNumber = -1

		if title := row.Find(".record-title").First(); title.Length() > 0 {
			hold.Id = strings.Replace(title.AttrOr("href", ""), "/Record/", "", 1)
		}
		hold.Resource = rowResource(row, hold.Id, origin)

		var disabled bool
		hold.ActionId, disabled = rowFormValue(row, "cancelSelectedIDS[]", "cancelAllIDS[]")
		hold.Cancellable = hold.ActionId != "" && !disabled

		if statusBox := row.Find(".holds-status-information").First(); statusBox.Length() > 0 {
			if queueText := statusBox.Find("p").First().Text(); strings.Contains(queueText, ":") {
				parts := strings.SplitN(queueText, ":", 2)
				if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
					hold.QueuePosition = n
				}
			}
			dates := dateRegex.FindAllString(statusBox.Text(), -1)
			if len(dates) > 1 {
				if d, err := time.ParseInLocation(portalDateLayout, dates[0], timezone.Location); err == nil {
					hold.HoldDate = d
				}
				if d, err := time.ParseInLocation(portalDateLayout, dates[1], timezone.Location); err == nil {
					hold.ExpirationDate = d
				}
			}
		}

		if pl := row.Find(".pickupLocationSelected").First(); pl.Length() > 0 {
			hold.PickupData.LocationName = selectionText(pl)
		} else if plRoot := row.Find(".pickup-location-container").First(); plRoot.Length() > 0 {
			parts := strings.SplitN(plRoot.Text(), ":", 2)
			if len(parts) > 1 {
				hold.PickupData.LocationName = htmlutil.CleanText(parts[1])
			}
		}

		for _, rule := range holdStatusTable {
			if rule.matches(row, hold.Cancellable) {
				hold.Status = rule.status
				break
			}
		}
		if hold.Status == HoldStatusAvailable {
			// the ready banner carries the reservation number, possibly
			// split across several digit runs
			banner := row.Find(".alert.alert-success").First().Text()
			if digits := strings.Join(digitsRegex.FindAllString(banner, -1), ""); digits != "" {
				if n, err := strconv.Atoi(digits); err == nil {
					hold.PickupData.ReservationNumber = n
				}
			}
		}

		holds = append(holds, hold)
	})
	return holds
}
