package finna

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"openfinna-go/lib/timezone"
)

const testOrigin = "https://example.finna.test"

func TestParseCSRF(t *testing.T) {
	html := `<form><input type="hidden" name="csrf" value="abc123"/></form>`
	token, err := parseCSRF(html)
	require.NoError(t, err)
	require.Equal(t, "abc123", token)

	_, err = parseCSRF(`<form></form>`)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "csrf token", parseErr.Section)
}

func TestParseUserTypes(t *testing.T) {
	html := `
		<select name="target">
			<option value="vaski">Vaski Libraries</option>
			<option value="helmet">Helmet</option>
		</select>`
	types := parseUserTypes(html)
	require.Equal(t, []UserType{
		{Id: "vaski", Name: "Vaski Libraries"},
		{Id: "helmet", Name: "Helmet"},
	}, types)
}

const loanRowTemplate = `
	<div class="myresearch-table">
		<div class="myresearch-row" id="record12345">
			<img class="recordcover" src="/Cover/Show?id=12345"/>
			<a class="record-title" href="/Record/12345">Seitsemän veljestä</a>
			<div class="record-core-metadata"><a>Kivi, Aleksis</a></div>
			<span class="label-info">Book</span>
			<input name="renewAllIDS[]" value="renew-token-1"/>
			<strong>2 / 3</strong>
			<strong>Due: 15.9.2026</strong>
		</div>
	</div>`

func TestParseLoans(t *testing.T) {
	loans := parseLoans(loanRowTemplate, testOrigin)
	require.Len(t, loans, 1)

	loan := loans[0]
	require.Equal(t, "12345", loan.Id)
	require.Equal(t, "renew-token-1", loan.RenewId)
	require.Equal(t, "Seitsemän veljestä", loan.Resource.Title)
	require.Equal(t, "Kivi, Aleksis", loan.Resource.Author)
	require.Equal(t, "Book", loan.Resource.Type)
	require.Equal(t, testOrigin+"/Cover/Show?id=12345", loan.Resource.Image)
	require.Equal(t, 2, loan.RenewsUsed)
	require.Equal(t, 3, loan.RenewsTotal)
	require.Equal(t,
		time.Date(2026, 9, 15, 0, 0, 0, 0, timezone.Location),
		loan.DueDate)
}

func TestParseLoansMissingCounts(t *testing.T) {
	html := `
		<div class="myresearch-table">
			<div class="myresearch-row" id="record9">
				<a class="record-title">Title</a>
				<strong>no digits here</strong>
			</div>
		</div>`
	loans := parseLoans(html, testOrigin)
	require.Len(t, loans, 1)
	require.Zero(t, loans[0].RenewsUsed)
	require.Zero(t, loans[0].RenewsTotal)
	require.True(t, loans[0].DueDate.IsZero())
}

func TestParseLoansNoTable(t *testing.T) {
	require.Empty(t, parseLoans(`<div>You have no items checked out.</div>`, testOrigin))
}

func TestParseHoldsStatusTable(t *testing.T) {
	tests := []struct {
		name        string
		rowBody     string
		status      HoldStatus
		cancellable bool
	}{
		{
			name: "waiting",
			rowBody: `
				<input name="cancelSelectedIDS[]" value="act-1"/>
				<div class="holds-status-information"><p>Queue: 4</p></div>`,
			status:      HoldStatusWaiting,
			cancellable: true,
		},
		{
			name: "in transit",
			rowBody: `
				<input name="cancelSelectedIDS[]" value="act-1" disabled/>
				<span class="text-success">In transit</span>`,
			status:      HoldStatusInTransit,
			cancellable: false,
		},
		{
			name: "available",
			rowBody: `
				<input name="cancelSelectedIDS[]" value="act-1" disabled/>
				<div class="alert alert-success">Ready for pickup, reservation 42</div>`,
			status:      HoldStatusAvailable,
			cancellable: false,
		},
		{
			// markers only demote the status when cancellation is gone
			name: "success marker but still cancellable",
			rowBody: `
				<input name="cancelSelectedIDS[]" value="act-1"/>
				<span class="text-success">note</span>`,
			status:      HoldStatusWaiting,
			cancellable: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			html := `
				<div class="myresearch-table">
					<div class="myresearch-row" id="recordh1">
						<a class="record-title" href="/Record/h1">Hold title</a>
						` + test.rowBody + `
					</div>
				</div>`
			holds := parseHolds(html, testOrigin)
			require.Len(t, holds, 1)
			require.Equal(t, test.status, holds[0].Status)
			require.Equal(t, test.cancellable, holds[0].Cancellable)
		})
	}
}

func TestParseHoldsFields(t *testing.T) {
	html := `
		<div class="myresearch-table">
			<div class="myresearch-row" id="recordh2">
				<a class="record-title" href="/Record/vaski.99">Title</a>
				<input name="cancelSelectedIDS[]" value="act-9" disabled/>
				<div class="holds-status-information">
					<p>Queue position: 3</p>
					<span>Hold placed 1.8.2026, expires 1.2.2027</span>
				</div>
				<div class="alert alert-success">Reservation number J 17 6</div>
				<span class="pickupLocationSelected">Main Library</span>
			</div>
		</div>`
	holds := parseHolds(html, testOrigin)
	require.Len(t, holds, 1)

	hold := holds[0]
	require.Equal(t, "vaski.99", hold.Id)
	require.Equal(t, "act-9", hold.ActionId)
	require.Equal(t, HoldStatusAvailable, hold.Status)
	require.Equal(t, 3, hold.QueuePosition)
	// digit runs in the banner concatenate into one number
	require.Equal(t, 176, hold.PickupData.ReservationNumber)
	require.Equal(t, "Main Library", hold.PickupData.LocationName)
	require.Equal(t,
		time.Date(2026, 8, 1, 0, 0, 0, 0, timezone.Location),
		hold.HoldDate)
	require.Equal(t,
		time.Date(2027, 2, 1, 0, 0, 0, 0, timezone.Location),
		hold.ExpirationDate)
}

func TestParseFines(t *testing.T) {
	html := `
		<div class="text-right online-payment-data"><span class="amount">10,00 €</span></div>
		<div class="total-balance"><span class="amount">12,50 €</span></div>
		<table class="table table-striped useraccount-table online-payment">
			<tr class="headers"><th>Date</th></tr>
			<tr>
				<td class="hidden-xs">3.6.2026</td>
				<td></td>
				<td class="balance">2,50 €</td>
				<td>Overdue fee</td>
			</tr>
			<tr>
				<td class="hidden-xs">4.6.2026</td>
				<td></td>
				<td class="balance">not a price</td>
				<td>Broken row</td>
			</tr>
		</table>`
	fines := parseFines(html)
	require.Equal(t, "€", fines.Currency)
	require.Equal(t, 10.00, fines.PayableDue)
	require.Equal(t, 12.50, fines.TotalDue)
	// the unparseable row is dropped, not zeroed
	require.Len(t, fines.Fines, 1)
	require.Equal(t, 2.50, fines.Fines[0].Price)
	require.Equal(t, "Overdue fee", fines.Fines[0].Description)
	require.Equal(t,
		time.Date(2026, 6, 3, 0, 0, 0, 0, timezone.Location),
		fines.Fines[0].RegistrationDate)
}

func TestParseBuildings(t *testing.T) {
	html := `
		<div class="organisations list-group"><a data-link="0" data-organisation="x" data-organisation-name="Consortia"></a></div>
		<div class="organisations list-group">
			<a data-link="0" data-organisation="vaski" data-organisation-name="Vaski Libraries"></a>
			<a data-link="0" data-organisation="helmet" data-organisation-name="Helmet"></a>
		</div>`
	buildings := parseBuildings(html)
	require.Equal(t, []Building{
		{Id: "0/vaski/", Name: "Vaski Libraries"},
		{Id: "0/helmet/", Name: "Helmet"},
	}, buildings)
	require.Equal(t, "vaski", buildings[0].RawId())
}

func TestParseHashKey(t *testing.T) {
	html := `<a class="placehold btn btn-primary hidden-print"
		href="/Record/1/Hold?id=1&level=title&hashKey=deadbeef#tabnav">Place hold</a>`
	key, err := parseHashKey(html)
	require.NoError(t, err)
	require.Equal(t, "deadbeef", key)

	_, err = parseHashKey(`<div></div>`)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseHoldingDetails(t *testing.T) {
	html := `
		<select id="requestGroupId">
			<option value="0">Normal</option>
			<option value="1">Interlibrary</option>
		</select>
		<div class="helptext">Pick your branch.</div>
		<textarea name="gatheredDetails[comment]"></textarea>
		<input name="gatheredDetails[requiredBy]" value="31.12.2026"/>`
	details, err := parseHoldingDetails(html)
	require.NoError(t, err)
	require.Equal(t, []HoldingType{
		{Id: "0", Name: "Normal"},
		{Id: "1", Name: "Interlibrary"},
	}, details.HoldingTypes)
	require.Equal(t, "Pick your branch.", details.Info)
	require.True(t, details.HasComments)
	require.False(t, details.HasPartSelection)
	require.Equal(t, "31.12.2026", details.DateSelectionDefault)

	_, err = parseHoldingDetails(`<form></form>`)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "holding type selector", parseErr.Section)
}

func TestParseRenewResult(t *testing.T) {
	loan := Loan{Id: "12345"}

	success := `
		<div class="myresearch-table">
			<div class="myresearch-row" id="record12345">
				<div class="alert alert-success">Renewed until 1.10.2026</div>
			</div>
		</div>`
	message, err := parseRenewResult(success, loan)
	require.NoError(t, err)
	require.Equal(t, "Renewed until 1.10.2026", message)

	failure := `
		<div class="myresearch-table">
			<div class="myresearch-row" id="record12345">
				<div class="alert alert-danger">Renewal limit reached</div>
			</div>
		</div>`
	_, err = parseRenewResult(failure, loan)
	var renewErr *RenewError
	require.ErrorAs(t, err, &renewErr)
	require.Equal(t, "Renewal limit reached", renewErr.Message)
}

func TestParseHomeLibrary(t *testing.T) {
	html := `
		<select id="home_library">
			<option value="a1">Branch A</option>
			<option value="b2" selected="selected">Branch B</option>
		</select>`
	selected, err := parseHomeLibrary(html)
	require.NoError(t, err)
	require.Equal(t, &PickupLocation{Id: "b2", Name: "Branch B"}, selected)

	options, err := parseHomeLibraries(html)
	require.NoError(t, err)
	require.Len(t, options, 2)
}

func TestParseCurrentCardId(t *testing.T) {
	html := `<div class="change-password-link">
		<a href="/LibraryCards/newPassword?id=card-77#content">Change password</a>
	</div>`
	require.Equal(t, "card-77", parseCurrentCardId(html))
	require.Equal(t, "", parseCurrentCardId(`<div></div>`))
}

func TestParseActiveChain(t *testing.T) {
	html := `
		<select id="login_target">
			<option value="helmet">Helmet</option>
			<option value="vaski" selected="selected">Vaski Libraries</option>
		</select>`
	chain, err := parseActiveChain(html)
	require.NoError(t, err)
	require.Equal(t, &UserType{Id: "vaski", Name: "Vaski Libraries"}, chain)
}

func TestParseUserDetails(t *testing.T) {
	html := `
		<span class="username login-text">Matti Meikäläinen</span>
		<form id="profile_library_form">
			<span class="profile-text-value">Matti</span>
			<span class="profile-text-value">Meikäläinen</span>
			<span class="profile-text-value">Esimerkkikatu 1</span>
			<span class="profile-text-value">20100</span>
			<span class="profile-text-value">Turku</span>
		</form>
		<input class="profile_tel" value="+358401234567"/>
		<input class="profile_email" value="matti@example.fi"/>`
	user := parseUserDetails(html)
	require.Equal(t, "Matti Meikäläinen", user.Name)
	require.Equal(t, "Matti", user.LibraryPreferences.FirstName)
	require.Equal(t, "Turku", user.LibraryPreferences.City)
	require.Equal(t, "+358401234567", user.LibraryPreferences.PhoneNumber)
	require.Equal(t, "matti@example.fi", user.LibraryPreferences.Email)
}

func TestParseActionSuccess(t *testing.T) {
	require.True(t, parseActionSuccess(
		`<div class="flash-message alert alert-success">Saved.</div>`))
	require.False(t, parseActionSuccess(
		`<div class="flash-message alert alert-danger">Nope.</div>`))
}
