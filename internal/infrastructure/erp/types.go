package erp

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// dateLayout is the remote's 8-digit date format
const dateLayout = "20060102"

// Endpoint identifiers. They key the backoff table and form the request
// path under the zone host.
const (
	EndpointLogin     = "oapi/login"
	EndpointInventory = "oapi/inventory-balance/list"
	EndpointSaveOrder = "oapi/sales-order/save"
)

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// Envelope is the remote's standard response wrapper. Status "200"
// indicates success; anything else is an application-level failure even
// when the HTTP status was 200.
type Envelope struct {
	Status string          `json:"Status"`
	Data   json.RawMessage `json:"Data,omitempty"`
	Error  *EnvelopeError  `json:"Error,omitempty"`
}

// EnvelopeError carries the remote's application-level error detail
type EnvelopeError struct {
	Code    string `json:"Code,omitempty"`
	Message string `json:"Message,omitempty"`
}

// IsSuccess returns true if the remote reported success
func (e *Envelope) IsSuccess() bool {
	return e.Status == "200"
}

// StatusCode returns the envelope status as an integer, or 0 when it is
// not numeric
func (e *Envelope) StatusCode() int {
	code, err := strconv.Atoi(strings.TrimSpace(e.Status))
	if err != nil {
		return 0
	}
	return code
}

// ErrorMessage returns the remote error message, if any
func (e *Envelope) ErrorMessage() string {
	if e.Error != nil {
		return e.Error.Message
	}
	return ""
}

// IsSessionExpired reports whether the application-level failure
// indicates expired authentication
func (e *Envelope) IsSessionExpired() bool {
	if e.IsSuccess() {
		return false
	}
	if e.StatusCode() == 401 {
		return true
	}
	msg := strings.ToLower(e.ErrorMessage())
	return strings.Contains(msg, "session expired") ||
		strings.Contains(msg, "invalid session") ||
		strings.Contains(msg, "login required")
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

// loginData is the Data payload of a successful login response
type loginData struct {
	SessionID string `json:"SessionID"`
	Zone      string `json:"Zone"`
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// inventoryData is the Data payload of the inventory balance endpoint
type inventoryData struct {
	Rows []inventoryRow `json:"Result"`
}

// inventoryRow is one stock balance line as reported by the remote
type inventoryRow struct {
	ProductCode string `json:"PROD_CD"`
	ProductName string `json:"PROD_DES"`
	BalanceQty  string `json:"BAL_QTY"`
}

// quantity parses the remote's string-encoded balance, zero on garbage
func (r inventoryRow) quantity() decimal.Decimal {
	qty, err := decimal.NewFromString(strings.TrimSpace(r.BalanceQty))
	if err != nil {
		return decimal.Zero
	}
	return qty
}

// ---------------------------------------------------------------------------
// Order Save
// ---------------------------------------------------------------------------

// orderSaveData is the Data payload of the sales order save endpoint
type orderSaveData struct {
	SlipNos      []string        `json:"SlipNos"`
	SuccessCount int             `json:"SuccessCnt"`
	FailCount    int             `json:"FailCnt"`
	Details      []orderSaveLine `json:"ResultDetails"`
}

// orderSaveLine is the per-line result detail. The remote can report an
// overall success while rejecting individual lines, so these must be
// inspected even on Status "200".
type orderSaveLine struct {
	Line      int    `json:"Line"`
	IsSuccess bool   `json:"IsSuccess"`
	Message   string `json:"TotalError"`
}

// OrderSaveResult is the parsed outcome of a sales order submission
type OrderSaveResult struct {
	// DocNos are the document numbers assigned by the remote
	DocNos []string
	// DocDate is the remote document date (YYYYMMDD)
	DocDate string
	// SuccessCount and FailCount are the remote's per-line tallies
	SuccessCount int
	FailCount    int
	// LineErrors maps rejected line numbers to the remote's message
	LineErrors map[int]string
}
