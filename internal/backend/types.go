package backend

// TopupRequest is one pending top-up purchase awaiting manual review.
type TopupRequest struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Vales        int    `json:"vales"`
	PriceUZS     int    `json:"priceUzs"`
	PackageLabel string `json:"packageLabel"`
	CreatedAt    int64  `json:"createdAt"`
	// ReceiptImage is either empty or a data URI
	// (data:image/<fmt>;base64,<payload>).
	ReceiptImage string `json:"receiptImage"`
}

// ResolvedRequest is the request state returned after approve/reject.
type ResolvedRequest struct {
	Status   string `json:"status"`
	Username string `json:"username"`
	Vales    int    `json:"vales"`
}

type pendingResponse struct {
	OK      bool           `json:"ok"`
	Message string         `json:"message"`
	Rows    []TopupRequest `json:"rows"`
}

type resolveResponse struct {
	OK      bool             `json:"ok"`
	Message string           `json:"message"`
	Request *ResolvedRequest `json:"request"`
}

// AccountResult is the common response shape of the profile endpoints.
type AccountResult struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	Username string `json:"username"`
}
