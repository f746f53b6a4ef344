package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in    string
		want  Category
		known bool
	}{
		{"Meals", Meals, true},
		{"  restaurant ", Meals, true},
		{"office supplies", OfficeSupplies, true},
		{"SaaS", Software, true},
		{"uber", Travel, true},
		{"groceries", Meals, true},
		{"Jewellery", Other, false},
		{"", Other, false},
	}
	for _, tt := range tests {
		got, known := Canonicalize(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.known, known, tt.in)
	}
}

func TestAsStringSlice(t *testing.T) {
	assert.Equal(t, []string{"Meals", "Travel", "Office Supplies", "Software", "Entertainment", "Other"}, AsStringSlice())
}

func TestExtFromName(t *testing.T) {
	assert.Equal(t, "pdf", ExtFromName("Invoice.PDF"))
	assert.Equal(t, "png", ExtFromName("scan.v2.png"))
	assert.Equal(t, DefaultExt, ExtFromName("noext"))
	assert.Equal(t, DefaultExt, ExtFromName("trailing."))
}

func TestMimeForExt(t *testing.T) {
	assert.Equal(t, MimePDF, MimeForExt(".pdf"))
	assert.Equal(t, "image/png", MimeForExt("PNG"))
	assert.Equal(t, MimeJPEG, MimeForExt("heic"))
}

func TestIsSupportedDocument(t *testing.T) {
	tests := []struct {
		mime, name string
		want       bool
	}{
		{"image/png", "x.txt", true},
		{"application/pdf", "", true},
		{"APPLICATION/PDF", "", true},
		{"text/plain", "receipt.jpg", false},
		{"", "receipt.jpg", true},
		{"", "receipt.docx", false},
		{"", "receipt", false},
		{"", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSupportedDocument(tt.mime, tt.name), "%q %q", tt.mime, tt.name)
	}
}
