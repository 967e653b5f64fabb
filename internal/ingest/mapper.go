package ingest

import (
	"strings"

	"github.com/timmy/catalogsync/internal/domain"
)

// Columns names the source header that feeds each product field.
type Columns struct {
	UniqueKey   string
	Title       string
	Description string
	StyleNumber string
	ColorFamily string
	Size        string
	ColorName   string
	UnitPrice   string
}

// DefaultColumns returns the header layout of the supplier catalog export.
func DefaultColumns() Columns {
	return Columns{
		UniqueKey:   "UNIQUE_KEY",
		Title:       "PRODUCT_TITLE",
		Description: "PRODUCT_DESCRIPTION",
		StyleNumber: "STYLE#",
		ColorFamily: "SANMAR_MAINFRAME_COLOR",
		Size:        "SIZE",
		ColorName:   "COLOR_NAME",
		UnitPrice:   "PIECE_PRICE",
	}
}

// ColumnsFromMap builds Columns from a field -> header map such as the
// ingest.columns config section. Missing or blank entries keep their default.
func ColumnsFromMap(m map[string]string) Columns {
	c := DefaultColumns()
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(m[key]); v != "" {
			*dst = v
		}
	}
	set(&c.UniqueKey, "unique_key")
	set(&c.Title, "title")
	set(&c.Description, "description")
	set(&c.StyleNumber, "style_number")
	set(&c.ColorFamily, "color_family")
	set(&c.Size, "size")
	set(&c.ColorName, "color_name")
	set(&c.UnitPrice, "unit_price")
	return c
}

// Mapper converts parsed records into product drafts.
type Mapper struct {
	columns Columns
}

// NewMapper creates a Mapper for the given column layout.
func NewMapper(columns Columns) *Mapper {
	return &Mapper{columns: columns}
}

// Map builds the product draft for rec, attributed to uploadID.
// Parameters:
//   - rec: sanitized record.
//   - uploadID: upload job that writes the product.
//
// Returns:
//   - *domain.Product: draft ready for upsert. Columns absent from the file map to nil.
//   - error: *MappingError with KindMissingUniqueKey when the key column is absent or empty.
func (m *Mapper) Map(rec Record, uploadID string) (*domain.Product, error) {
	key, ok := rec.Get(m.columns.UniqueKey)
	if !ok || key == "" {
		return nil, &MappingError{Kind: KindMissingUniqueKey, Line: rec.Line, Column: m.columns.UniqueKey}
	}

	price, _ := rec.Get(m.columns.UnitPrice)
	product := &domain.Product{
		UniqueKey:   key,
		Title:       m.optional(rec, m.columns.Title),
		Description: m.optional(rec, m.columns.Description),
		StyleNumber: m.optional(rec, m.columns.StyleNumber),
		ColorFamily: m.optional(rec, m.columns.ColorFamily),
		Size:        m.optional(rec, m.columns.Size),
		ColorName:   m.optional(rec, m.columns.ColorName),
		UnitPrice:   ParsePrice(price),
	}
	if uploadID != "" {
		product.SourceUploadID = &uploadID
	}
	return product, nil
}

func (m *Mapper) optional(rec Record, header string) *string {
	v, ok := rec.Get(header)
	if !ok {
		return nil
	}
	return &v
}
