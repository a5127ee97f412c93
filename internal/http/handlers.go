package http

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"spent/internal/core"
	applog "spent/internal/log"
	"spent/internal/services"
)

// amount encodes as a bare JSON number so responses mirror what requests accept.
type amount decimal.Decimal

func (a amount) Decimal() decimal.Decimal { return decimal.Decimal(a) }

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().String()), nil
}

func (a *amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = amount(d)
	return nil
}

type amounts map[string]amount

func toAmounts(t core.CategoryTotals) amounts {
	out := make(amounts, len(t))
	for k, v := range t {
		out[k] = amount(v)
	}
	return out
}

type transactionResponse struct {
	Month       string `json:"month"`
	Description string `json:"description"`
	Amount      amount `json:"amount"`
	Category    string `json:"category"`
}

type correctionResponse struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Updated     int    `json:"updated"`
}

type reportResponse struct {
	Month  string  `json:"month"`
	User   string  `json:"user,omitempty"`
	Totals amounts `json:"totals"`
	Total  amount  `json:"total"`
}

type changeResponse struct {
	Category string `json:"category"`
	From     amount `json:"from"`
	To       amount `json:"to"`
	Change   amount `json:"change"`
}

type comparisonResponse struct {
	From    string           `json:"from"`
	To      string           `json:"to"`
	Changes []changeResponse `json:"changes"`
	Summary string           `json:"summary"`
}

type splitResponse struct {
	Month       string  `json:"month"`
	Spend       amounts `json:"spend"`
	TotalSpent  amount  `json:"total_spent"`
	TotalIncome amount  `json:"total_income"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.health.HealthCheck(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "storage unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.parseFields(w, r, "month", "description", "amount")
	if !ok {
		return
	}
	tx, err := s.svc.As(userFromRequest(r)).AddTransaction(r.Context(), fields["month"], fields["description"], fields["amount"])
	if err != nil {
		s.fail(w, r, applog.OpRecord, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toTransactionResponse(tx)).Write(w)
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.parseFields(w, r, "month", "source", "amount")
	if !ok {
		return
	}
	tx, err := s.svc.As(userFromRequest(r)).AddIncome(r.Context(), fields["month"], fields["source"], fields["amount"])
	if err != nil {
		s.fail(w, r, applog.OpRecord, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toTransactionResponse(tx)).Write(w)
}

func (s *Server) handleCorrectCategory(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.parseFields(w, r, "description", "category")
	if !ok {
		return
	}
	res, err := s.svc.As(userFromRequest(r)).CorrectCategory(r.Context(), fields["description"], fields["category"])
	if err != nil {
		s.fail(w, r, applog.OpCorrect, err)
		return
	}
	NewJSONResponse().Body(correctionResponse{
		Description: res.Description,
		Category:    res.Category,
		Updated:     res.Updated,
	}).Write(w)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	user := userFromRequest(r)
	totals, err := s.svc.As(user).MonthlyReport(r.Context(), r.PathValue("month"))
	if err != nil {
		s.fail(w, r, applog.OpReport, err)
		return
	}
	m, _ := core.ParseMonth(r.PathValue("month"))
	NewJSONResponse().Body(reportResponse{
		Month:  m.String(),
		User:   user,
		Totals: toAmounts(totals),
		Total:  amount(totals.Sum()),
	}).Write(w)
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	split, err := s.svc.As(userFromRequest(r)).SpendIncomeSplit(r.Context(), r.PathValue("month"))
	if err != nil {
		s.fail(w, r, applog.OpSplit, err)
		return
	}
	NewJSONResponse().Body(splitResponse{
		Month:       split.Month.String(),
		Spend:       toAmounts(split.Spend),
		TotalSpent:  amount(split.TotalSpent),
		TotalIncome: amount(split.TotalIncome),
	}).Write(w)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := sanitizeInput(q.Get("from")), sanitizeInput(q.Get("to"))
	if from == "" || to == "" {
		BadRequestError("from and to are required").Write(w)
		return
	}
	cmp, err := s.svc.As(userFromRequest(r)).Compare(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, applog.OpCompare, err)
		return
	}
	changes := make([]changeResponse, 0, len(cmp.Changes))
	for _, c := range cmp.Changes {
		changes = append(changes, changeResponse{Category: c.Category, From: amount(c.From), To: amount(c.To), Change: amount(c.Change)})
	}
	NewJSONResponse().Body(comparisonResponse{
		From:    cmp.From.String(),
		To:      cmp.To.String(),
		Changes: changes,
		Summary: cmp.Summary,
	}).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.As(userFromRequest(r)).ExportMonth(r.Context(), r.PathValue("month"))
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]int{"rows": rows}).Write(w)
}

// parseFields writes a 400 and returns false when the body is unreadable or
// a required field is missing.
func (s *Server) parseFields(w http.ResponseWriter, r *http.Request, keys ...string) (map[string]string, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return nil, false
	}
	fields, err := p.Require(keys...)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return nil, false
	}
	return fields, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, op, nil)
	}
	resp.Write(w)
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		Month:       tx.Month.String(),
		Description: tx.Description,
		Amount:      amount(tx.Amount),
		Category:    tx.Category,
	}
}
