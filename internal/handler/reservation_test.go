package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercook/workshop-booking/internal/model"
)

func workshopWith(id uint64, price float64, capacity int) *model.Workshop {
	return &model.Workshop{ID: id, Price: price, Capacity: capacity}
}

func TestFindDuplicates(t *testing.T) {
	assert.Empty(t, findDuplicates([]uint64{1, 2, 3}))
	assert.Equal(t, []uint64{2}, findDuplicates([]uint64{1, 2, 2, 3}))
	// Each duplicate reported once, in first-occurrence order.
	assert.Equal(t, []uint64{5, 1}, findDuplicates([]uint64{5, 1, 5, 1, 5}))
}

func TestPlanBatchAllBookable(t *testing.T) {
	ids := []uint64{1, 2}
	workshops := map[uint64]*model.Workshop{
		1: workshopWith(1, 25.0, 10),
		2: workshopWith(2, 40.0, 5),
	}
	counts := map[uint64]int{1: 3, 2: 4}
	plan := planBatch(ids, workshops, counts, nil)
	assert.True(t, plan.ok())
}

func TestPlanBatchReportsEveryMissingID(t *testing.T) {
	ids := []uint64{1, 7, 9}
	workshops := map[uint64]*model.Workshop{1: workshopWith(1, 25.0, 10)}
	plan := planBatch(ids, workshops, map[uint64]int{}, nil)
	assert.Equal(t, []uint64{7, 9}, plan.Missing)
	assert.False(t, plan.ok())
}

func TestPlanBatchRejectsNegativePrice(t *testing.T) {
	ids := []uint64{1}
	workshops := map[uint64]*model.Workshop{1: workshopWith(1, -1.0, 10)}
	plan := planBatch(ids, workshops, map[uint64]int{}, nil)
	assert.Equal(t, []uint64{1}, plan.BadPrice)
}

func TestPlanBatchFullWorkshop(t *testing.T) {
	ids := []uint64{1, 2}
	workshops := map[uint64]*model.Workshop{
		1: workshopWith(1, 25.0, 3),
		2: workshopWith(2, 25.0, 3),
	}
	counts := map[uint64]int{1: 3, 2: 2}
	plan := planBatch(ids, workshops, counts, nil)
	assert.Equal(t, []batchIssue{{WorkshopID: 1, Reason: "full"}}, plan.Unavailable)
	assert.Empty(t, plan.Conflicts)
}

func TestPlanBatchConflictsWithExistingActiveReservation(t *testing.T) {
	ids := []uint64{1, 2}
	workshops := map[uint64]*model.Workshop{
		1: workshopWith(1, 25.0, 10),
		2: workshopWith(2, 25.0, 10),
	}
	plan := planBatch(ids, workshops, map[uint64]int{}, []uint64{2})
	assert.Equal(t, []uint64{2}, plan.Conflicts)
}

func TestPlanBatchBucketPrecedence(t *testing.T) {
	// A workshop that is both full and already held by the user lands in
	// the availability bucket only.
	ids := []uint64{1}
	workshops := map[uint64]*model.Workshop{1: workshopWith(1, 25.0, 1)}
	plan := planBatch(ids, workshops, map[uint64]int{1: 1}, []uint64{1})
	assert.Len(t, plan.Unavailable, 1)
	assert.Empty(t, plan.Conflicts)
}

func TestPlanBatchZeroCapacityNeverBookable(t *testing.T) {
	ids := []uint64{1}
	workshops := map[uint64]*model.Workshop{1: workshopWith(1, 25.0, 0)}
	plan := planBatch(ids, workshops, map[uint64]int{}, nil)
	assert.Len(t, plan.Unavailable, 1)
}

func bookingRequest(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/reservations", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(1))
	return c, rec
}

func TestCreateRejectsZeroWorkshopID(t *testing.T) {
	// A zero id fails the whole request; it is not silently dropped.
	h := &ReservationHandler{}
	c, rec := bookingRequest(`{"workshop_ids":[0,5]}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be positive")

	c, rec = bookingRequest(`{"workshop_ids":[0]}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be positive")
}

func TestCreateRequiresWorkshopIDs(t *testing.T) {
	h := &ReservationHandler{}
	c, rec := bookingRequest(`{"workshop_ids":[]}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "workshop_ids is required")
}

func TestCreateRejectsDuplicateWorkshopIDs(t *testing.T) {
	h := &ReservationHandler{}
	c, rec := bookingRequest(`{"workshop_ids":[2,3,2]}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate workshop ids")
}
