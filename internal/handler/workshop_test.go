package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validWorkshopReq() workshopReq {
	return workshopReq{
		Name:      "Fresh Pasta Basics",
		Date:      "2026-09-15",
		StartTime: "18:00",
		EndTime:   "20:30",
		Price:     45.0,
		Capacity:  12,
		Modality:  "presencial",
	}
}

func TestValidateWorkshopReqAccepts(t *testing.T) {
	req := validWorkshopReq()
	assert.Empty(t, validateWorkshopReq(&req))
	// Times are normalized to HH:MM:SS.
	assert.Equal(t, "18:00:00", req.StartTime)
	assert.Equal(t, "20:30:00", req.EndTime)
}

func TestValidateWorkshopReqNormalizesModality(t *testing.T) {
	req := validWorkshopReq()
	req.Modality = "  Virtual "
	assert.Empty(t, validateWorkshopReq(&req))
	assert.Equal(t, "virtual", req.Modality)
}

func TestValidateWorkshopReqRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*workshopReq)
	}{
		{"empty name", func(r *workshopReq) { r.Name = "  " }},
		{"bad date", func(r *workshopReq) { r.Date = "15/09/2026" }},
		{"bad start time", func(r *workshopReq) { r.StartTime = "6pm" }},
		{"negative price", func(r *workshopReq) { r.Price = -1 }},
		{"zero capacity", func(r *workshopReq) { r.Capacity = 0 }},
		{"unknown modality", func(r *workshopReq) { r.Modality = "hybrid" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validWorkshopReq()
			tc.mutate(&req)
			assert.NotEmpty(t, validateWorkshopReq(&req))
		})
	}
}

func TestNormalizeClock(t *testing.T) {
	assert.Equal(t, "09:05:00", normalizeClock("09:05"))
	assert.Equal(t, "18:00:30", normalizeClock("18:00:30"))
	assert.Equal(t, "", normalizeClock("25:00"))
	assert.Equal(t, "", normalizeClock(""))
}
