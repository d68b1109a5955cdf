package finna

import (
	"strings"
	"time"
)

// UserType is one target library system on the federated login page,
// selected at login time.
type UserType struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// Building is the organisational scope (branch or consortium) search and
// library listings are filtered by.
type Building struct {
	Id   string `json:"value"`
	Name string `json:"displayText"`
}

// RawId is the second "/"-separated segment of the id, e.g. "12" for
// "0/12/". The organisation-info endpoints speak this identifier space.
func (b Building) RawId() string {
	split := strings.Split(b.Id, "/")
	if len(split) < 2 {
		return b.Id
	}
	return split[1]
}

// Resource is the minimal description of a catalog item embedded in loans
// and holds.
type Resource struct {
	Id     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Type   string `json:"type"`
	Image  string `json:"image"`
}

type Loan struct {
	Id          string    `json:"id"`
	RenewId     string    `json:"renewId"`
	Resource    Resource  `json:"resource"`
	RenewsUsed  int       `json:"renewsUsed"`
	RenewsTotal int       `json:"renewsTotal"`
	DueDate     time.Time `json:"dueDate"`
}

type HoldStatus string

const (
	HoldStatusWaiting   HoldStatus = "waiting"
	HoldStatusInTransit HoldStatus = "in_transit"
	HoldStatusAvailable HoldStatus = "available"
)

type HoldPickupData struct {
	LocationName      string `json:"pickupLocation"`
	ReservationNumber int    `json:"reservationNumber"`
}

type Hold struct {
	Id             string         `json:"id"`
	ActionId       string         `json:"actionId"`
	Status         HoldStatus     `json:"status"`
	Cancellable    bool           `json:"cancellable"`
	PickupData     HoldPickupData `json:"pickupData"`
	QueuePosition  int            `json:"queue"`
	HoldDate       time.Time      `json:"holdDate"`
	ExpirationDate time.Time      `json:"expirationDate"`
	Resource       Resource       `json:"resource"`
}

// PriceNotSet is the sentinel a Fine's price holds before a valid price has
// been parsed; such fines are dropped from the list.
const PriceNotSet = float64(-1)

type Fine struct {
	Price            float64   `json:"price"`
	RegistrationDate time.Time `json:"registrationDate"`
	Description      string    `json:"description"`
}

type Fines struct {
	Currency   string  `json:"currency"`
	TotalDue   float64 `json:"totalDue"`
	PayableDue float64 `json:"payableDue"`
	Fines      []Fine  `json:"fines"`
}

type PickupLocation struct {
	Id   string `json:"locationID"`
	Name string `json:"locationDisplay"`
}

type HoldingType struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// HoldingDetails describes the hold-placement form of one catalog resource.
type HoldingDetails struct {
	HoldingTypes []HoldingType `json:"holdingTypes"`
	Info         string        `json:"info"`
	// presence of the respective form controls in the hold tab
	HasComments          bool   `json:"hasComments"`
	HasPartSelection     bool   `json:"hasPartSelection"`
	DateSelectionDefault string `json:"dateSelectionDefault"`
}

type LibraryPreferences struct {
	FullName    string `json:"fullName"`
	FirstName   string `json:"firstName"`
	Surname     string `json:"surname"`
	Address     string `json:"address"`
	Zipcode     string `json:"zipcode"`
	City        string `json:"city"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

// PortalPreferences are the account settings stored on the portal side
// rather than in the library system (nickname, notification address).
type PortalPreferences struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

type User struct {
	Name               string             `json:"name"`
	LibraryPreferences LibraryPreferences `json:"libraryPreferences"`
	PortalPreferences  PortalPreferences  `json:"portalPreferences"`
	Building           *Building          `json:"building,omitempty"`
}

type LibraryType string

const (
	LibraryTypeMunicipal LibraryType = "municipal"
	LibraryTypeMobile    LibraryType = "mobile"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type LibraryLocation struct {
	Street      string       `json:"street"`
	Zipcode     string       `json:"zipcode"`
	City        string       `json:"city"`
	MapUrl      string       `json:"mapUrl"`
	RouteUrl    string       `json:"routeUrl"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type Link struct {
	Url  string `json:"url"`
	Name string `json:"name"`
}

type Image struct {
	Url        string `json:"url"`
	Size       int64  `json:"size"`
	Resolution string `json:"resolution"`
}

// Schedule is one day's opening interval; SelfService marks unstaffed hours.
type Schedule struct {
	Opens       time.Time `json:"opens"`
	Closes      time.Time `json:"closes"`
	SelfService bool      `json:"selfService"`
}

type Day struct {
	Date     time.Time `json:"date"`
	Closed   bool      `json:"closed"`
	Schedule *Schedule `json:"schedule,omitempty"`
}

// Library is first obtained in summary form from the list call and then
// enriched in place by a detail call, see (*Client).Library.
type Library struct {
	Id              string           `json:"id"`
	Name            string           `json:"name"`
	ShortName       string           `json:"shortName"`
	Slug            string           `json:"slug"`
	Type            LibraryType      `json:"type"`
	Email           string           `json:"email"`
	Homepage        string           `json:"homepage"`
	Location        *LibraryLocation `json:"location,omitempty"`
	Images          []Image          `json:"images"`
	Links           []Link           `json:"links"`
	Services        []string         `json:"services"`
	ScheduleNotices []string         `json:"scheduleNotices"`
	Slogan          string           `json:"slogan"`
	Days            []Day            `json:"days"`
	CurrentlyOpen   bool             `json:"currentlyOpen"`
}

type Author struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
	// the role-group key the author was listed under, e.g. "primary"
	Type string `json:"type"`
}

type Format struct {
	Id         string `json:"value"`
	Translated string `json:"translated"`
}

// ResourceInfo is the full catalog-record projection returned by the record
// and search APIs.
type ResourceInfo struct {
	Id                  string         `json:"id"`
	Title               string         `json:"title"`
	ShortTitle          string         `json:"shortTitle"`
	SubTitle            string         `json:"subTitle"`
	Topics              []string       `json:"topics"`
	PublicationYear     int            `json:"publicationYear"`
	ISBN                string         `json:"isbn"`
	Authors             []Author       `json:"authors"`
	Formats             []Format       `json:"formats"`
	GeneralNotes        []string       `json:"generalNotes"`
	Languages           []string       `json:"languages"`
	OriginalLanguages   []string       `json:"originalLanguages"`
	PhysicalDescription string         `json:"physicalDescription"`
	Edition             string         `json:"edition"`
	Manufacturer        string         `json:"manufacturer"`
	Publishers          []string       `json:"publishers"`
	PublicationPlace    string         `json:"publicationPlace"`
	YKL                 []string       `json:"ykl"`
	Awards              []string       `json:"awards"`
	ImageLink           string         `json:"imageLink"`
	RawData             map[string]any `json:"rawData,omitempty"`
}

// Credentials select the target library system and identify the patron.
// A non-empty Session pre-seeds the cookie store so a stored session can be
// resumed without a fresh login.
type Credentials struct {
	UserType UserType `json:"userType"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Session  string   `json:"session,omitempty"`
}
