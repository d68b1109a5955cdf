package finna

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"openfinna-go/lib/timezone"
)

// recordKeys is the exact field[] projection requested from the search and
// record endpoints, in declared order.
var recordKeys = []string{
	"id",
	"title",
	"subTitle",
	"shortTitle",
	"cleanIsbn",
	"edition",
	"manufacturer",
	"year",
	"physicalDescription",
	"placesOfPublication",
	"subjects",
	"generalNotes",
	"languages",
	"originalLanguages",
	"publishers",
	"awards",
	"classifications",
	"authors",
	"formats",
}

// rawDataKey is projected in addition to recordKeys when the caller asks
// for the unprojected backing record.
const rawDataKey = "rawData"

const defaultPublicationYear = 1970

// stringList tolerates a JSON field that is either a single string or an
// array of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = []string{one}
		return nil
	}
	*l = nil
	return nil
}

// flexInt tolerates a numeric field delivered as either a JSON number or a
// numeric string.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexInt(v)
	return nil
}

type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = flexString(strings.Trim(string(data), `"`))
	return nil
}

type searchResponse struct {
	ResultCount int               `json:"resultCount"`
	Records     []json.RawMessage `json:"records"`
}

type recordWire struct {
	Id                  string                     `json:"id"`
	Title               string                     `json:"title"`
	SubTitle            string                     `json:"subTitle"`
	ShortTitle          string                     `json:"shortTitle"`
	CleanIsbn           string                     `json:"cleanIsbn"`
	Edition             string                     `json:"edition"`
	Manufacturer        string                     `json:"manufacturer"`
	Year                flexInt                    `json:"year"`
	PhysicalDescription stringList                 `json:"physicalDescription"`
	PlacesOfPublication stringList                 `json:"placesOfPublication"`
	Subjects            [][]string                 `json:"subjects"`
	GeneralNotes        stringList                 `json:"generalNotes"`
	Languages           stringList                 `json:"languages"`
	OriginalLanguages   stringList                 `json:"originalLanguages"`
	Publishers          stringList                 `json:"publishers"`
	Awards              stringList                 `json:"awards"`
	Classifications     map[string]stringList      `json:"classifications"`
	Authors             map[string]json.RawMessage `json:"authors"`
	Formats             []Format                   `json:"formats"`
	RawData             map[string]any             `json:"rawData"`
}

type authorWire struct {
	Role stringList `json:"role"`
}

// decodeAuthors flattens the per-role-group author maps. A group whose
// value is not an object (the API emits an empty array for empty groups)
// is skipped rather than failing the record.
func decodeAuthors(groups map[string]json.RawMessage) []Author {
	var authors []Author
	for group, raw := range groups {
		entries := map[string]authorWire{}
		if err := json.Unmarshal(raw, &entries); err != nil {
			continue
		}
		for name, entry := range entries {
			roles := []string(entry.Role)
			// a lone "-" is the API's no-role placeholder
			if len(roles) > 0 && roles[0] == "-" {
				roles = nil
			}
			authors = append(authors, Author{
				Name:  name,
				Roles: roles,
				Type:  group,
			})
		}
	}
	return authors
}

// dedupeFormats keeps the first occurrence of each translated format label;
// the API repeats a format once per hierarchy level.
func dedupeFormats(formats []Format) []Format {
	seen := map[string]bool{}
	var out []Format
	for _, f := range formats {
		if seen[f.Translated] {
			continue
		}
		seen[f.Translated] = true
		out = append(out, f)
	}
	return out
}

func coverLink(origin, recordId, isbn string) string {
	return fmt.Sprintf("%s/Cover/Show?recordid=%s&isbn=%s",
		origin, url.QueryEscape(recordId), url.QueryEscape(isbn))
}

func decodeRecord(raw json.RawMessage, origin string, includeRaw bool) (ResourceInfo, error) {
	var wire recordWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return ResourceInfo{}, fmt.Errorf("decode record: %w", err)
	}

	info := ResourceInfo{
		Id:                  wire.Id,
		Title:               wire.Title,
		ShortTitle:          wire.ShortTitle,
		SubTitle:            wire.SubTitle,
		PublicationYear:     int(wire.Year),
		ISBN:                wire.CleanIsbn,
		Authors:             decodeAuthors(wire.Authors),
		Formats:             dedupeFormats(wire.Formats),
		GeneralNotes:        wire.GeneralNotes,
		Languages:           wire.Languages,
		OriginalLanguages:   wire.OriginalLanguages,
		PhysicalDescription: strings.Join(wire.PhysicalDescription, " "),
		Edition:             wire.Edition,
		Manufacturer:        wire.Manufacturer,
		Publishers:          wire.Publishers,
		PublicationPlace:    strings.Join(wire.PlacesOfPublication, " "),
		YKL:                 wire.Classifications["ykl"],
		Awards:              wire.Awards,
		ImageLink:           coverLink(origin, wire.Id, wire.CleanIsbn),
	}
	if info.PublicationYear == 0 {
		info.PublicationYear = defaultPublicationYear
	}
	for _, group := range wire.Subjects {
		info.Topics = append(info.Topics, group...)
	}
	if includeRaw {
		info.RawData = wire.RawData
	}
	return info, nil
}

func decodeRecords(body []byte, origin string, includeRaw bool) (int, []ResourceInfo, error) {
	var response searchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}
	var records []ResourceInfo
	for _, raw := range response.Records {
		record, err := decodeRecord(raw, origin, includeRaw)
		if err != nil {
			return 0, nil, err
		}
		records = append(records, record)
	}
	return response.ResultCount, records, nil
}

type facetResponse struct {
	Facets struct {
		Building []struct {
			Value      string `json:"value"`
			Translated string `json:"translated"`
		} `json:"building"`
	} `json:"facets"`
}

func decodeBuildingFacets(body []byte) ([]Building, error) {
	var response facetResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decode building facets: %w", err)
	}
	var buildings []Building
	for _, facet := range response.Facets.Building {
		buildings = append(buildings, Building{
			Id:   facet.Value,
			Name: facet.Translated,
		})
	}
	return buildings, nil
}

// ajaxResult is the common envelope of the portal's mutating AJAX calls.
type ajaxResult struct {
	Data struct {
		Success    bool   `json:"success"`
		SysMessage string `json:"sysMessage"`
		Status     string `json:"status"`
	} `json:"data"`
}

func decodeAjaxResult(body []byte) (ajaxResult, error) {
	var result ajaxResult
	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("decode ajax result: %w", err)
	}
	return result, nil
}

type libraryScheduleWire struct {
	Date   flexString `json:"date"`
	Closed bool       `json:"closed"`
	Times  []struct {
		Opens       string `json:"opens"`
		Closes      string `json:"closes"`
		SelfService bool   `json:"selfservice"`
	} `json:"times"`
}

type libraryWire struct {
	Id        flexString `json:"id"`
	Name      string     `json:"name"`
	ShortName string     `json:"shortName"`
	Slug      string     `json:"slug"`
	Type      string     `json:"type"`
	Email     string     `json:"email"`
	Homepage  string     `json:"homepage"`
	MapUrl    string     `json:"mapUrl"`
	RouteUrl  string     `json:"routeUrl"`
	Address   *struct {
		Street      string `json:"street"`
		Zipcode     string `json:"zipcode"`
		City        string `json:"city"`
		Coordinates *struct {
			Lat flexString `json:"lat"`
			Lon flexString `json:"lon"`
		} `json:"coordinates"`
	} `json:"address"`
	OpenTimes *struct {
		CurrentlyOpen bool                  `json:"openNow"`
		Schedules     []libraryScheduleWire `json:"schedules"`
	} `json:"openTimes"`
	Pictures []struct {
		Url        string `json:"url"`
		Size       int64  `json:"size"`
		Resolution string `json:"resolution"`
	} `json:"pictures"`
	Links []struct {
		Name string `json:"name"`
		Url  string `json:"url"`
	} `json:"links"`
	Services             stringList `json:"services"`
	Slogan               string     `json:"slogan"`
	ScheduleDescriptions stringList `json:"scheduleDescriptions"`
}

// libraryDate resolves the portal's year-less "d.M." schedule dates against
// the current year in the portal's timezone.
func libraryDate(text string) (time.Time, bool) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(text), ".")
	parts := strings.Split(trimmed, ".")
	if len(parts) != 2 {
		return time.Time{}, false
	}
	day, errD := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	if errD != nil || errM != nil {
		return time.Time{}, false
	}
	now := timezone.Now()
	return time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, timezone.Location), true
}

func libraryClock(date time.Time, clock string) (time.Time, bool) {
	t, err := time.ParseInLocation("15:04", clock, timezone.Location)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0, timezone.Location), true
}

func decodeLibraryDays(schedules []libraryScheduleWire) []Day {
	var days []Day
	for _, wire := range schedules {
		date, ok := libraryDate(string(wire.Date))
		if !ok {
			continue
		}
		day := Day{Date: date, Closed: wire.Closed}
		if !wire.Closed && len(wire.Times) > 0 {
			interval := wire.Times[0]
			opens, okO := libraryClock(date, interval.Opens)
			closes, okC := libraryClock(date, interval.Closes)
			if okO && okC {
				day.Schedule = &Schedule{
					Opens:       opens,
					Closes:      closes,
					SelfService: interval.SelfService,
				}
			}
		}
		days = append(days, day)
	}
	return days
}

func parseFlexFloat(s flexString) (float64, bool) {
	v, err := strconv.ParseFloat(string(s), 64)
	return v, err == nil
}

func decodeLibrarySummary(wire libraryWire) Library {
	library := Library{
		Id:        string(wire.Id),
		Name:      wire.Name,
		ShortName: wire.ShortName,
		Slug:      wire.Slug,
		Type:      LibraryTypeMunicipal,
		Email:     wire.Email,
		Homepage:  wire.Homepage,
	}
	if wire.Type == "mobile" {
		library.Type = LibraryTypeMobile
	}
	if wire.Address != nil {
		location := &LibraryLocation{
			Street:   wire.Address.Street,
			Zipcode:  wire.Address.Zipcode,
			City:     wire.Address.City,
			MapUrl:   wire.MapUrl,
			RouteUrl: wire.RouteUrl,
		}
		if wire.Address.Coordinates != nil {
			lat, okLat := parseFlexFloat(wire.Address.Coordinates.Lat)
			lon, okLon := parseFlexFloat(wire.Address.Coordinates.Lon)
			if okLat && okLon {
				location.Coordinates = &Coordinates{Lat: lat, Lon: lon}
			}
		}
		library.Location = location
	}
	if wire.OpenTimes != nil {
		library.CurrentlyOpen = wire.OpenTimes.CurrentlyOpen
	}
	return library
}

func decodeLibraries(body []byte) ([]Library, error) {
	var response struct {
		Data struct {
			List []libraryWire `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decode library list: %w", err)
	}
	var libraries []Library
	for _, wire := range response.Data.List {
		libraries = append(libraries, decodeLibrarySummary(wire))
	}
	return libraries, nil
}

// mergeLibraryDetails enriches an already-listed library in place with the
// detail-only fields. Summary fields stay untouched so the merge never
// clobbers data the list call already delivered.
func mergeLibraryDetails(library *Library, body []byte) error {
	var response struct {
		Data libraryWire `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("decode library details: %w", err)
	}
	wire := response.Data
	for _, picture := range wire.Pictures {
		library.Images = append(library.Images, Image{
			Url:        picture.Url,
			Size:       picture.Size,
			Resolution: picture.Resolution,
		})
	}
	for _, link := range wire.Links {
		library.Links = append(library.Links, Link{Name: link.Name, Url: link.Url})
	}
	library.Services = wire.Services
	library.ScheduleNotices = wire.ScheduleDescriptions
	library.Slogan = wire.Slogan
	if wire.OpenTimes != nil {
		library.Days = decodeLibraryDays(wire.OpenTimes.Schedules)
	}
	return nil
}
