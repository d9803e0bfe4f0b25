package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInquiryStatus(t *testing.T) {
	st, err := ParseInquiryStatus(" Contacted ")
	require.NoError(t, err)
	assert.Equal(t, InquiryContacted, st)

	_, err = ParseInquiryStatus("archived")
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}

func TestParseReviewStatus(t *testing.T) {
	for _, s := range []string{"pending", "approved", "hidden", "removed"} {
		st, err := ParseReviewStatus(s)
		require.NoError(t, err)
		assert.Equal(t, ReviewStatus(s), st)
	}
	_, err := ParseReviewStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCatalog(t *testing.T) {
	cats := Catalog()
	require.Len(t, cats, 6)
	assert.Equal(t, ServiceWebsite, cats[0].Name)
	assert.Contains(t, cats[0].Options, "Landing Page")

	assert.True(t, IsValidService("SEO & Insights"))
	assert.False(t, IsValidService("Plumbing"))
	assert.True(t, IsValidOption(ServiceWebsite, "E-Commerce"))
	assert.False(t, IsValidOption(ServiceMobile, "E-Commerce"))
}

func TestServiceOptions_ReturnsCopy(t *testing.T) {
	opts := ServiceOptions(ServiceGeneral)
	opts[0] = "mutated"
	assert.Equal(t, "Consultation", ServiceOptions(ServiceGeneral)[0])
	assert.Nil(t, ServiceOptions("unknown"))
}
