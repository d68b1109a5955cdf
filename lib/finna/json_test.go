package finna

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"openfinna-go/lib/timezone"
)

func TestDecodeRecords(t *testing.T) {
	body := []byte(`{
		"resultCount": 1,
		"records": [{
			"id": "vaski.12345",
			"title": "Seitsemän veljestä",
			"shortTitle": "Seitsemän veljestä",
			"cleanIsbn": "9789510000000",
			"year": "1870",
			"physicalDescription": ["373 pages"],
			"subjects": [["novels"], ["classics", "finnish literature"]],
			"languages": "fin",
			"classifications": {"ykl": ["84.2"], "udk": ["894"]},
			"authors": {
				"primary": {"Kivi, Aleksis": {"role": ["author"]}},
				"secondary": [],
				"corporate": {"SKS": {"role": "publisher"}}
			},
			"formats": [
				{"value": "0/Book/", "translated": "Book"},
				{"value": "1/Book/Book/", "translated": "Book"}
			]
		}]
	}`)

	count, records, err := decodeRecords(body, testOrigin, false)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, records, 1)

	record := records[0]
	require.Equal(t, "vaski.12345", record.Id)
	require.Equal(t, 1870, record.PublicationYear)
	require.Equal(t, "373 pages", record.PhysicalDescription)
	require.Equal(t, []string{"novels", "classics", "finnish literature"}, record.Topics)
	require.Equal(t, []string{"fin"}, record.Languages)
	require.Equal(t, []string{"84.2"}, record.YKL)
	// the empty role group is skipped, not an error
	require.Len(t, record.Authors, 2)
	// repeated hierarchy levels collapse to one format
	require.Equal(t, []Format{{Id: "0/Book/", Translated: "Book"}}, record.Formats)
	require.Equal(t,
		testOrigin+"/Cover/Show?recordid=vaski.12345&isbn=9789510000000",
		record.ImageLink)
	require.Nil(t, record.RawData)
}

func TestDecodeRecordDefaults(t *testing.T) {
	body := []byte(`{"resultCount": 1, "records": [
		{"id": "x", "year": "unknown", "rawData": {"fullrecord": "<record/>"}}
	]}`)
	_, records, err := decodeRecords(body, testOrigin, true)
	require.NoError(t, err)
	require.Equal(t, defaultPublicationYear, records[0].PublicationYear)
	// the unprojected backing record is surfaced as delivered
	require.Equal(t, map[string]any{"fullrecord": "<record/>"}, records[0].RawData)

	// and withheld when not asked for, even if the API sent it
	_, records, err = decodeRecords(body, testOrigin, false)
	require.NoError(t, err)
	require.Nil(t, records[0].RawData)
}

func TestDecodeAuthorsRoles(t *testing.T) {
	record := recordWire{}
	body := []byte(`{
		"authors": {
			"primary": {"Kivi, Aleksis": {"role": ["author", "editor"]}}
		}
	}`)
	require.NoError(t, json.Unmarshal(body, &record))
	authors := decodeAuthors(record.Authors)
	require.Len(t, authors, 1)
	require.Equal(t, "Kivi, Aleksis", authors[0].Name)
	require.Equal(t, []string{"author", "editor"}, authors[0].Roles)
	require.Equal(t, "primary", authors[0].Type)
}

func TestDecodeAuthorsRolePlaceholder(t *testing.T) {
	record := recordWire{}
	body := []byte(`{
		"authors": {
			"primary": {"Kivi, Aleksis": {"role": ["-"]}}
		}
	}`)
	require.NoError(t, json.Unmarshal(body, &record))
	authors := decodeAuthors(record.Authors)
	require.Len(t, authors, 1)
	// "-" means the record carries no real role
	require.Nil(t, authors[0].Roles)
}

func TestDecodeBuildingFacets(t *testing.T) {
	body := []byte(`{
		"facets": {
			"building": [
				{"value": "0/vaski/", "translated": "Vaski Libraries"},
				{"value": "0/helmet/", "translated": "Helmet"}
			]
		}
	}`)
	buildings, err := decodeBuildingFacets(body)
	require.NoError(t, err)
	require.Equal(t, []Building{
		{Id: "0/vaski/", Name: "Vaski Libraries"},
		{Id: "0/helmet/", Name: "Helmet"},
	}, buildings)
}

func TestDecodeLibrariesAndMerge(t *testing.T) {
	list := []byte(`{
		"data": {
			"list": [{
				"id": 84924,
				"name": "Main Library",
				"shortName": "Main",
				"slug": "main",
				"type": "library",
				"email": "library@example.fi",
				"homepage": "https://example.fi",
				"mapUrl": "https://maps.example.fi",
				"address": {
					"street": "Linnankatu 2",
					"zipcode": "20100",
					"city": "Turku",
					"coordinates": {"lat": "60.4518", "lon": "22.2666"}
				},
				"openTimes": {"openNow": true, "schedules": []}
			}]
		}
	}`)
	libraries, err := decodeLibraries(list)
	require.NoError(t, err)
	require.Len(t, libraries, 1)

	library := libraries[0]
	require.Equal(t, "84924", library.Id)
	require.Equal(t, LibraryTypeMunicipal, library.Type)
	require.True(t, library.CurrentlyOpen)
	require.NotNil(t, library.Location)
	require.Equal(t, "Linnankatu 2", library.Location.Street)
	require.InDelta(t, 60.4518, library.Location.Coordinates.Lat, 0.0001)

	details := []byte(`{
		"data": {
			"name": "WRONG NAME",
			"slogan": "Books for everyone",
			"pictures": [{"url": "https://img.example.fi/1.jpg", "size": 1024, "resolution": "800x600"}],
			"links": [{"name": "Facebook", "url": "https://fb.example"}],
			"services": ["wifi", "printing"],
			"scheduleDescriptions": ["Self-service 7-22"],
			"openTimes": {
				"schedules": [
					{"date": "1.6.", "closed": false,
						"times": [{"opens": "09:00", "closes": "19:00", "selfservice": false}]},
					{"date": "2.6.", "closed": true}
				]
			}
		}
	}`)
	require.NoError(t, mergeLibraryDetails(&library, details))
	// summary fields survive the merge untouched
	require.Equal(t, "Main Library", library.Name)
	require.Equal(t, "Books for everyone", library.Slogan)
	require.Len(t, library.Images, 1)
	require.Equal(t, []string{"wifi", "printing"}, library.Services)
	require.Len(t, library.Days, 2)

	open := library.Days[0]
	require.False(t, open.Closed)
	require.NotNil(t, open.Schedule)
	require.Equal(t, timezone.Now().Year(), open.Schedule.Opens.Year())
	require.Equal(t, 9, open.Schedule.Opens.Hour())
	require.Equal(t, 19, open.Schedule.Closes.Hour())
	require.True(t, library.Days[1].Closed)
	require.Nil(t, library.Days[1].Schedule)
}

func TestDecodeAjaxResult(t *testing.T) {
	result, err := decodeAjaxResult([]byte(`{"data": {"success": false, "sysMessage": "too late"}}`))
	require.NoError(t, err)
	require.False(t, result.Data.Success)
	require.Equal(t, "too late", result.Data.SysMessage)
}
