package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/packlane/labeld/internal/lifecycle"
	"github.com/packlane/labeld/internal/store"
	"go.uber.org/zap"
)

type errorBody struct {
	Kind       string   `json:"kind"`
	Message    string   `json:"message"`
	Missing    []string `json:"missing,omitempty"`
	HTTPStatus int      `json:"carrier_http_status,omitempty"`
	ErrorCode  string   `json:"carrier_error_code,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps lifecycle error kinds onto HTTP statuses. Validation
// problems are the caller's to fix, preconditions mean a step is missing
// or the parcel is busy, carrier failures are upstream trouble.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Kind:    "not_found",
			Message: "resource not found",
		}})
		return
	}

	var le *lifecycle.Error
	if errors.As(err, &le) {
		body := errorBody{
			Kind:    string(le.Kind),
			Message: le.Message,
			Missing: le.Missing,
		}
		if le.Diag != nil {
			body.HTTPStatus = le.Diag.HTTPStatus
			body.ErrorCode = le.Diag.ErrorCode
		}

		var status int
		switch le.Kind {
		case lifecycle.KindValidation:
			status = http.StatusUnprocessableEntity
		case lifecycle.KindPrecondition:
			status = http.StatusConflict
		case lifecycle.KindCarrier, lifecycle.KindTerminal, lifecycle.KindNoRates:
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorResponse{Error: body})
		return
	}

	s.logger.Ctx(r.Context()).Error("Unhandled error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
		Kind:    "internal",
		Message: "internal error",
	}})
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Kind:    "validation",
			Message: "invalid " + name,
		}})
		return uuid.Nil, false
	}
	return id, true
}

// --- views ---

type quoteView struct {
	RateID      string  `json:"rate_id"`
	Carrier     string  `json:"carrier"`
	ServiceName string  `json:"service_name"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	EtaDaysMin  int     `json:"eta_days_min,omitempty"`
	EtaDaysMax  int     `json:"eta_days_max,omitempty"`
}

type labelView struct {
	State          string   `json:"state"`
	TrackingNumber string   `json:"tracking_number,omitempty"`
	LabelURL       string   `json:"label_url,omitempty"`
	CostAmount     *float64 `json:"cost_amount,omitempty"`
	CostCurrency   string   `json:"cost_currency,omitempty"`
	FailureReason  string   `json:"failure_reason,omitempty"`
}

type parcelView struct {
	ID             uuid.UUID   `json:"id"`
	OrderID        uuid.UUID   `json:"order_id"`
	ParcelIndex    int         `json:"parcel_index"`
	BoxPresetID    *uuid.UUID  `json:"box_preset_id,omitempty"`
	CustomLength   *float64    `json:"custom_length,omitempty"`
	CustomWidth    *float64    `json:"custom_width,omitempty"`
	CustomHeight   *float64    `json:"custom_height,omitempty"`
	Weight         float64     `json:"weight"`
	Quotes         []quoteView `json:"quotes"`
	SelectedRateID *string     `json:"selected_rate_id,omitempty"`
	QuoteWarning   string      `json:"quote_warning,omitempty"`
	Label          labelView   `json:"label"`
	CarrierName    string      `json:"carrier_name,omitempty"`
	ServiceName    string      `json:"service_name,omitempty"`
	PurchasedAt    *string     `json:"purchased_at,omitempty"`
}

func viewParcel(p *store.Parcel) parcelView {
	v := parcelView{
		ID:             p.ID,
		OrderID:        p.OrderID,
		ParcelIndex:    p.ParcelIndex,
		BoxPresetID:    p.BoxPresetID,
		CustomLength:   p.CustomLength,
		CustomWidth:    p.CustomWidth,
		CustomHeight:   p.CustomHeight,
		Weight:         p.Weight,
		Quotes:         make([]quoteView, 0, len(p.Quotes)),
		SelectedRateID: p.SelectedRateID,
		QuoteWarning:   p.QuoteWarning,
		CarrierName:    p.CarrierName,
		ServiceName:    p.ServiceName,
		Label: labelView{
			State:          p.LabelState,
			TrackingNumber: p.TrackingNumber,
			LabelURL:       p.LabelURL,
			CostAmount:     p.LabelCostAmount,
			CostCurrency:   p.LabelCostCurrency,
			FailureReason:  p.FailureReason,
		},
	}
	for _, q := range p.Quotes {
		v.Quotes = append(v.Quotes, quoteView{
			RateID:      q.RateID,
			Carrier:     q.Carrier,
			ServiceName: q.ServiceName,
			Amount:      q.Amount,
			Currency:    q.Currency,
			EtaDaysMin:  q.EtaDaysMin,
			EtaDaysMax:  q.EtaDaysMax,
		})
	}
	if p.PurchasedAt != nil {
		ts := p.PurchasedAt.UTC().Format("2006-01-02T15:04:05Z")
		v.PurchasedAt = &ts
	}
	return v
}

func viewParcels(parcels []store.Parcel) []parcelView {
	views := make([]parcelView, 0, len(parcels))
	for i := range parcels {
		views = append(views, viewParcel(&parcels[i]))
	}
	return views
}

// --- ship-from ---

type shipFromBody struct {
	Name         string `json:"name"`
	Company      string `json:"company,omitempty"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	RegionCode   string `json:"region_code"`
	PostalCode   string `json:"postal_code"`
	CountryCode  string `json:"country_code"`
	Phone        string `json:"phone,omitempty"`
}

func viewShipFrom(p *store.ShipFromProfile) shipFromBody {
	return shipFromBody{
		Name:         p.Name,
		Company:      p.Company,
		AddressLine1: p.AddressLine1,
		AddressLine2: p.AddressLine2,
		City:         p.City,
		RegionCode:   p.RegionCode,
		PostalCode:   p.PostalCode,
		CountryCode:  p.CountryCode,
		Phone:        p.Phone,
	}
}

func (s *Server) handleGetShipFrom(w http.ResponseWriter, r *http.Request) {
	profile, err := s.manager.GetShipFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewShipFrom(profile))
}

func (s *Server) handleSaveShipFrom(w http.ResponseWriter, r *http.Request) {
	var body shipFromBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, lifecycle.InvalidBody(err))
		return
	}
	profile, err := s.manager.SaveShipFrom(r.Context(), &store.ShipFromProfile{
		Name:         body.Name,
		Company:      body.Company,
		AddressLine1: body.AddressLine1,
		AddressLine2: body.AddressLine2,
		City:         body.City,
		RegionCode:   body.RegionCode,
		PostalCode:   body.PostalCode,
		CountryCode:  body.CountryCode,
		Phone:        body.Phone,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewShipFrom(profile))
}

// --- box presets ---

type presetBody struct {
	ID            uuid.UUID `json:"id,omitempty"`
	Name          string    `json:"name"`
	Length        float64   `json:"length"`
	Width         float64   `json:"width"`
	Height        float64   `json:"height"`
	DefaultWeight *float64  `json:"default_weight,omitempty"`
}

func viewPreset(p *store.BoxPreset) presetBody {
	return presetBody{
		ID:            p.ID,
		Name:          p.Name,
		Length:        p.Length,
		Width:         p.Width,
		Height:        p.Height,
		DefaultWeight: p.DefaultWeight,
	}
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.manager.ListPresets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]presetBody, 0, len(presets))
	for i := range presets {
		views = append(views, viewPreset(&presets[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	var body presetBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, lifecycle.InvalidBody(err))
		return
	}
	preset, err := s.manager.SavePreset(r.Context(), &store.BoxPreset{
		Name:          body.Name,
		Length:        body.Length,
		Width:         body.Width,
		Height:        body.Height,
		DefaultWeight: body.DefaultWeight,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewPreset(preset))
}

func (s *Server) handleUpdatePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "presetID")
	if !ok {
		return
	}
	var body presetBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, lifecycle.InvalidBody(err))
		return
	}
	preset, err := s.manager.SavePreset(r.Context(), &store.BoxPreset{
		ID:            id,
		Name:          body.Name,
		Length:        body.Length,
		Width:         body.Width,
		Height:        body.Height,
		DefaultWeight: body.DefaultWeight,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPreset(preset))
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "presetID")
	if !ok {
		return
	}
	if err := s.manager.DeletePreset(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- orders and parcels ---

type createOrderBody struct {
	Reference      string `json:"reference"`
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone,omitempty"`
	AddressLine1   string `json:"address_line1"`
	AddressLine2   string `json:"address_line2,omitempty"`
	City           string `json:"city"`
	RegionCode     string `json:"region_code"`
	PostalCode     string `json:"postal_code"`
	CountryCode    string `json:"country_code"`
}

type orderView struct {
	ID        uuid.UUID `json:"id"`
	Reference string    `json:"reference"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, lifecycle.InvalidBody(err))
		return
	}
	order, err := s.manager.CreateOrder(r.Context(), &store.Order{
		Reference:      body.Reference,
		RecipientName:  body.RecipientName,
		RecipientPhone: body.RecipientPhone,
		AddressLine1:   body.AddressLine1,
		AddressLine2:   body.AddressLine2,
		City:           body.City,
		RegionCode:     body.RegionCode,
		PostalCode:     body.PostalCode,
		CountryCode:    body.CountryCode,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderView{ID: order.ID, Reference: order.Reference})
}

type parcelDraftBody struct {
	BoxPresetID  *uuid.UUID `json:"box_preset_id,omitempty"`
	CustomLength *float64   `json:"custom_length,omitempty"`
	CustomWidth  *float64   `json:"custom_width,omitempty"`
	CustomHeight *float64   `json:"custom_height,omitempty"`
	Weight       *float64   `json:"weight,omitempty"`
}

func (b *parcelDraftBody) draft() lifecycle.ParcelDraft {
	return lifecycle.ParcelDraft{
		BoxPresetID:  b.BoxPresetID,
		CustomLength: b.CustomLength,
		CustomWidth:  b.CustomWidth,
		CustomHeight: b.CustomHeight,
		Weight:       b.Weight,
	}
}

func (s *Server) handleListParcels(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	parcels, err := s.manager.ListParcels(r.Context(), orderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewParcels(parcels))
}

func (s *Server) handleCreateParcel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	var body parcelDraftBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, lifecycle.InvalidBody(err))
		return
	}
	parcels, err := s.manager.CreateParcel(r.Context(), orderID, body.draft())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewParcels(parcels))
}

func (s *Server) handleUpdateParcel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	parcelID, ok := pathUUID(w, r, "parcelID")
	if !ok {
		return
	}
	var body parcelDraftBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, lifecycle.InvalidBody(err))
		return
	}
	parcel, err := s.manager.UpdateParcel(r.Context(), orderID, parcelID, body.draft())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewParcel(parcel))
}

func (s *Server) handleDeleteParcel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	parcelID, ok := pathUUID(w, r, "parcelID")
	if !ok {
		return
	}
	if err := s.manager.DeleteParcel(r.Context(), orderID, parcelID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- quoting, selection, purchase, refresh ---

type quoteRequestBody struct {
	Parcel *parcelDraftBody `json:"parcel,omitempty"`
}

type quoteResponseBody struct {
	Parcel           parcelView `json:"parcel"`
	Warning          string     `json:"warning,omitempty"`
	SelectionCleared bool       `json:"selection_cleared,omitempty"`
}

func (s *Server) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	parcelID, ok := pathUUID(w, r, "parcelID")
	if !ok {
		return
	}
	var body quoteRequestBody
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			s.writeError(w, r, lifecycle.InvalidBody(err))
			return
		}
	}
	var draft *lifecycle.ParcelDraft
	if body.Parcel != nil {
		d := body.Parcel.draft()
		draft = &d
	}
	outcome, err := s.manager.GetQuotes(r.Context(), orderID, parcelID, draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponseBody{
		Parcel:           viewParcel(outcome.Parcel),
		Warning:          outcome.Warning,
		SelectionCleared: outcome.SelectionCleared,
	})
}

type selectRateBody struct {
	RateID string `json:"rate_id"`
}

func (s *Server) handleSelectRate(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	parcelID, ok := pathUUID(w, r, "parcelID")
	if !ok {
		return
	}
	var body selectRateBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, lifecycle.InvalidBody(err))
		return
	}
	parcel, err := s.manager.SelectQuote(r.Context(), orderID, parcelID, body.RateID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewParcel(parcel))
}

type purchaseRequestBody struct {
	RateID *string          `json:"rate_id,omitempty"`
	Parcel *parcelDraftBody `json:"parcel,omitempty"`
}

type purchaseResponseBody struct {
	Parcel  parcelView `json:"parcel"`
	Pending bool       `json:"pending"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	parcelID, ok := pathUUID(w, r, "parcelID")
	if !ok {
		return
	}
	var body purchaseRequestBody
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			s.writeError(w, r, lifecycle.InvalidBody(err))
			return
		}
	}
	var draft *lifecycle.ParcelDraft
	if body.Parcel != nil {
		d := body.Parcel.draft()
		draft = &d
	}
	outcome, err := s.manager.BuyLabel(r.Context(), orderID, parcelID, body.RateID, draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if outcome.Pending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, purchaseResponseBody{
		Parcel:  viewParcel(outcome.Parcel),
		Pending: outcome.Pending,
	})
}

type refreshResponseBody struct {
	Parcel        parcelView `json:"parcel"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	parcelID, ok := pathUUID(w, r, "parcelID")
	if !ok {
		return
	}
	outcome, err := s.manager.RefreshLabelStatus(r.Context(), orderID, parcelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponseBody{
		Parcel:        viewParcel(outcome.Parcel),
		Status:        string(outcome.Status),
		FailureReason: outcome.FailureReason,
	})
}

type refreshPendingItem struct {
	ParcelID uuid.UUID `json:"parcel_id"`
	Status   string    `json:"status,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (s *Server) handleRefreshPending(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	results, err := s.manager.RefreshPendingParcels(r.Context(), orderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]refreshPendingItem, 0, len(results))
	for _, res := range results {
		item := refreshPendingItem{ParcelID: res.ParcelID}
		if res.Err != nil {
			item.Error = res.Err.Error()
		} else {
			item.Status = string(res.Outcome.Status)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}
