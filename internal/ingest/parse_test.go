package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Widget", want: "Widget"},
		{name: "trims", in: "  Widget \t", want: "Widget"},
		{name: "leading bom", in: "\uFEFFUNIQUE_KEY", want: "UNIQUE_KEY"},
		{name: "raw bom bytes mid string", in: "A\xEF\xBB\xBFB", want: "AB"},
		{name: "control chars", in: "Wid\x00get\x07\r\n", want: "Widget"},
		{name: "invalid utf8", in: "caf\xe9", want: "caf\uFFFD"},
		{name: "extended unicode kept", in: "Café – 100%", want: "Café – 100%"},
		{name: "astral plane stripped", in: "Hat 🎩", want: "Hat"},
		{name: "nbsp trimmed", in: "\u00a0Size\u00a0", want: "Size"},
		{name: "empty", in: "", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"\uFEFF  hello\x00 world \u00a0",
		"\xff\xfe bad \xc3",
		"\u00a0\u3000 \t",
		"tab\tinside",
		"\uFEFF\uFEFF",
		"🎩 \u00a0x",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		in    string
		want  string
		valid bool
	}{
		{in: "$12.50", want: "12.5", valid: true},
		{in: "1,299.99 USD", want: "1299.99", valid: true},
		{in: "3", want: "3", valid: true},
		{in: ".5", want: "0.5", valid: true},
		{in: "7.", want: "7", valid: true},
		{in: "2.345", want: "2.35", valid: true},
		{in: "-4.00", want: "4", valid: true},
		{in: "abc", valid: false},
		{in: "", valid: false},
		{in: "$", valid: false},
		{in: ".", valid: false},
		{in: "1.2.3", valid: false},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got := ParsePrice(tc.in)
			require.Equal(t, tc.valid, got.Valid)
			if tc.valid {
				assert.True(t, got.Decimal.Equal(decimal.RequireFromString(tc.want)), "got %s", got.Decimal)
			}
		})
	}
}

func TestParser_Count(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want int
	}{
		{name: "header only", in: "A,B\n", want: 0},
		{name: "rows", in: "A,B\n1,2\n3,4\n", want: 2},
		{name: "no trailing newline", in: "A,B\n1,2\n3,4", want: 2},
		{name: "blank lines skipped", in: "A,B\n\n1,2\n\n3,4\n\n", want: 2},
		{name: "quoted newline is one row", in: "A,B\n\"multi\nline\",2\n", want: 1},
		{name: "ragged rows counted", in: "A,B\n1\n1,2,3\n", want: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var p Parser
			got, err := p.Count(strings.NewReader(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParser_EmptyStreamHasNoHeader(t *testing.T) {
	var p Parser

	_, err := p.Count(strings.NewReader(""))
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, KindNoHeader, parseErr.Kind)

	_, _, err = p.Records(strings.NewReader(""))
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, KindNoHeader, parseErr.Kind)
	assert.Contains(t, err.Error(), "header")
}

func TestParser_Records(t *testing.T) {
	in := "\uFEFFUNIQUE_KEY, PRODUCT_TITLE ,PIECE_PRICE\n" +
		"A1,\" Widget \",$12.50\n" +
		"A2,Short\n" +
		"A3,Long,1,extra\n" +
		"\"A4\",\"Quoted, comma\",\"2\"\n"

	var p Parser
	header, records, err := p.Records(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"UNIQUE_KEY", "PRODUCT_TITLE", "PIECE_PRICE"}, header)

	var got []Record
	var errs []error
	for rec, err := range records {
		got = append(got, rec)
		errs = append(errs, err)
	}
	require.Len(t, got, 4)

	assert.NoError(t, errs[0])
	assert.Equal(t, 2, got[0].Line)
	title, ok := got[0].Get("PRODUCT_TITLE")
	assert.True(t, ok)
	assert.Equal(t, "Widget", title)

	assert.NoError(t, errs[1], "short rows are padded")
	price, ok := got[1].Get("PIECE_PRICE")
	assert.True(t, ok)
	assert.Equal(t, "", price)

	var mapErr *MappingError
	require.True(t, errors.As(errs[2], &mapErr))
	assert.Equal(t, KindTooManyFields, mapErr.Kind)
	assert.True(t, IsRowError(errs[2]))

	assert.NoError(t, errs[3])
	title, _ = got[3].Get("PRODUCT_TITLE")
	assert.Equal(t, "Quoted, comma", title)
}

func TestParser_RecordsStopsEarly(t *testing.T) {
	var p Parser
	_, records, err := p.Records(strings.NewReader("K\n1\n2\n3\n"))
	require.NoError(t, err)

	n := 0
	for range records {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestMapper_Map(t *testing.T) {
	m := NewMapper(DefaultColumns())
	rec := Record{Line: 2, Fields: []Field{
		{Header: "UNIQUE_KEY", Value: "A1"},
		{Header: "PRODUCT_TITLE", Value: "Widget"},
		{Header: "SIZE", Value: ""},
		{Header: "PIECE_PRICE", Value: "$12.50"},
	}}

	product, err := m.Map(rec, "upload-1")
	require.NoError(t, err)
	assert.Equal(t, "A1", product.UniqueKey)
	require.NotNil(t, product.Title)
	assert.Equal(t, "Widget", *product.Title)
	require.NotNil(t, product.Size, "present but empty column maps to empty string")
	assert.Equal(t, "", *product.Size)
	assert.Nil(t, product.Description, "absent column maps to nil")
	assert.True(t, product.UnitPrice.Valid)
	assert.True(t, product.UnitPrice.Decimal.Equal(decimal.RequireFromString("12.50")))
	require.NotNil(t, product.SourceUploadID)
	assert.Equal(t, "upload-1", *product.SourceUploadID)
}

func TestMapper_MissingUniqueKey(t *testing.T) {
	m := NewMapper(DefaultColumns())

	testCases := []struct {
		name string
		rec  Record
	}{
		{name: "empty", rec: Record{Fields: []Field{{Header: "UNIQUE_KEY", Value: ""}, {Header: "PRODUCT_TITLE", Value: "Bad"}}}},
		{name: "absent", rec: Record{Fields: []Field{{Header: "PRODUCT_TITLE", Value: "Bad"}}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Map(tc.rec, "upload-1")
			var mapErr *MappingError
			require.True(t, errors.As(err, &mapErr))
			assert.Equal(t, KindMissingUniqueKey, mapErr.Kind)
			assert.Contains(t, err.Error(), "UNIQUE_KEY")
		})
	}
}

func TestColumnsFromMap(t *testing.T) {
	c := ColumnsFromMap(map[string]string{"unique_key": "SKU", "title": " "})
	assert.Equal(t, "SKU", c.UniqueKey)
	assert.Equal(t, "PRODUCT_TITLE", c.Title)
	assert.Equal(t, "PIECE_PRICE", c.UnitPrice)
}
