package interfaces

import (
	"net/http"
	"testing"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/application"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTransactionsBulk_WithValidationError(t *testing.T) {
	handler := NewTransactionHandler(&MockTransactionService{}, respondJSON, respondError)

	body := `{"transactions":[
		{"label":"Bread","date":"2024-03-01","amount":-3.5,"category_label":"Groceries"},
		{"label":"","date":"2024-03-01","amount":-1,"category_label":"Groceries"},
		{"label":"Flight","date":"2024-03-01","amount":-300,"category_label":"Travel"},
		{"label":"No date","amount":20,"category_label":"Other"}
	]}`
	res := serve("POST /transactions/bulk", handler.CreateTransactionsBulk, http.MethodPost, "/transactions/bulk", body, &alice)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	var response map[string]interface{}
	require.NoError(t, decodeBody(res, &response))

	expectedErrors := []interface{}{
		"Validation error at transaction 2: Label must not be empty",
		"Validation error at transaction 3: Category Travel does not exist",
		"Validation error at transaction 4: Date is required",
	}
	assert.Equal(t, "Validation errors occurred", response["message"])
	assert.Equal(t, expectedErrors, response["errors"])
}

func TestCreateTransactionsBulk_InvalidRequestBody(t *testing.T) {
	handler := NewTransactionHandler(&MockTransactionService{}, respondJSON, respondError)

	cases := []struct {
		body    string
		message string
	}{
		{"invalid body", "Invalid request body"},
		{`{"wrongKey":[{"label":"x"}]}`, "Invalid request body - no transactions provided"},
		{`{"transactions":"this should be an array, not a string"}`, "Invalid request body"},
	}
	for _, tc := range cases {
		res := serve("POST /transactions/bulk", handler.CreateTransactionsBulk, http.MethodPost, "/transactions/bulk", tc.body, &alice)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)

		var response map[string]interface{}
		require.NoError(t, decodeBody(res, &response))
		assert.Equal(t, "error", response["status"])
		assert.Equal(t, tc.message, response["message"])
		assert.Equal(t, float64(http.StatusBadRequest), response["code"])
	}
}

func TestCreateTransaction(t *testing.T) {
	service := &MockTransactionService{}
	handler := NewTransactionHandler(service, respondJSON, respondError)

	body := `{"label":"Coffee","date":"2024-03-01","amount":-3.5,"category_label":"Other"}`
	res := serve("POST /transactions", handler.CreateTransaction, http.MethodPost, "/transactions", body, &alice)
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	var response struct {
		Data domain.Transaction `json:"data"`
	}
	require.NoError(t, decodeBody(res, &response))
	assert.Equal(t, "Coffee", response.Data.Label)
	assert.Equal(t, alice.ID, response.Data.UserID)
	assert.Equal(t, "2024-03-01", response.Data.Date.String())

	body = `{"label":"Coffee","date":"2024-03-01","amount":-3.5,"category_label":"Travel"}`
	res = serve("POST /transactions", handler.CreateTransaction, http.MethodPost, "/transactions", body, &alice)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()
}

func TestCreateTransaction_InvalidDate(t *testing.T) {
	handler := NewTransactionHandler(&MockTransactionService{}, respondJSON, respondError)

	body := `{"label":"Coffee","date":"01/03/2024","amount":-3.5,"category_label":"Other"}`
	res := serve("POST /transactions", handler.CreateTransaction, http.MethodPost, "/transactions", body, &alice)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()
}

func TestTransactionByID(t *testing.T) {
	service := &MockTransactionService{
		transactions: []domain.Transaction{{ID: 1, Label: "Bread", UserID: alice.ID}},
	}
	handler := NewTransactionHandler(service, respondJSON, respondError)

	res := serve("GET /transactions/{transactionID}", handler.GetTransaction, http.MethodGet, "/transactions/1", "", &bob)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()

	res = serve("PUT /transactions/{transactionID}", handler.UpdateTransaction, http.MethodPut, "/transactions/1", `{"label":"Rye bread"}`, &admin)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	var response struct {
		Data domain.Transaction `json:"data"`
	}
	require.NoError(t, decodeBody(res, &response))
	assert.Equal(t, "Rye bread", response.Data.Label)

	res = serve("DELETE /transactions/{transactionID}", handler.DeleteTransaction, http.MethodDelete, "/transactions/0", "", &alice)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()

	res = serve("DELETE /transactions/{transactionID}", handler.DeleteTransaction, http.MethodDelete, "/transactions/1", "", &alice)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
}

func TestGetAllTransactions_RequiresAdmin(t *testing.T) {
	handler := NewTransactionHandler(&MockTransactionService{}, respondJSON, respondError)

	res := serve("GET /transactions/all", handler.GetAllTransactions, http.MethodGet, "/transactions/all", "", &alice)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()
}

func TestGetTransactionSummary(t *testing.T) {
	service := &MockTransactionService{
		summary: map[int]application.TransactionSummary{
			2024: {Year: 2024, IncomeTotal: 100, ExpenseTotal: 40, Months: map[string]application.MonthSummary{}},
		},
	}
	handler := NewTransactionHandler(service, respondJSON, respondError)

	res := serve("GET /transactions/summary", handler.GetTransactionSummary, http.MethodGet,
		"/transactions/summary?start_date=2024-01-01&end_date=2024-03-31", "", &alice)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var response struct {
		Data map[string]application.TransactionSummary `json:"data"`
	}
	require.NoError(t, decodeBody(res, &response))
	assert.Equal(t, 40.0, response.Data["2024"].ExpenseTotal)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), service.summaryStart)
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), service.summaryEnd)

	res = serve("GET /transactions/summary", handler.GetTransactionSummary, http.MethodGet,
		"/transactions/summary?start_date=yesterday", "", &alice)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()
}
