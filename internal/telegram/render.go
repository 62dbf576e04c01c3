package telegram

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/shadowstrike/topup-bot/internal/backend"
)

// callbackTag namespaces the approve/reject callback tokens so the handler
// can tell its own buttons apart from anything else.
const callbackTag = "tp"

var errNotDataURI = errors.New("receipt is not an embedded image")

// ResolveToken is a parsed approve/reject button press.
type ResolveToken struct {
	Action    string
	RequestID string
}

func resolveCallbackData(action, requestID string) string {
	return fmt.Sprintf("%s:%s:%s", callbackTag, action, requestID)
}

// parseResolveToken parses "tp:<approve|reject>:<requestId>". Anything
// else reports ok=false and is ignored by the caller.
func parseResolveToken(data string) (ResolveToken, bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != callbackTag {
		return ResolveToken{}, false
	}
	if parts[1] != backend.ActionApprove && parts[1] != backend.ActionReject {
		return ResolveToken{}, false
	}
	return ResolveToken{Action: parts[1], RequestID: parts[2]}, true
}

func topupCaption(req backend.TopupRequest) string {
	return fmt.Sprintf(
		"Top-up request\n"+
			"ID: %s\n"+
			"User: %s\n"+
			"Package: %s\n"+
			"Vales: %d\n"+
			"UZS: %d\n"+
			"CreatedAt: %d",
		req.ID, req.Username, req.PackageLabel, req.Vales, req.PriceUZS, req.CreatedAt,
	)
}

func topupKeyboard(requestID string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Approve", CallbackData: resolveCallbackData(backend.ActionApprove, requestID)},
				{Text: "❌ Reject", CallbackData: resolveCallbackData(backend.ActionReject, requestID)},
			},
		},
	}
}

func resolvedLine(req *backend.ResolvedRequest) string {
	return fmt.Sprintf("Top-up %s | %s | +%d vales",
		strings.ToUpper(req.Status), req.Username, req.Vales)
}

// decodeReceipt decodes a data:image/<fmt>;base64,<payload> receipt into
// raw image bytes plus the declared format. Anything that is not a
// well-formed embedded image is an error; callers fall back to text-only.
func decodeReceipt(receipt string) ([]byte, string, error) {
	if !strings.HasPrefix(receipt, "data:image/") {
		return nil, "", errNotDataURI
	}

	header, payload, found := strings.Cut(receipt, ",")
	if !found {
		return nil, "", errNotDataURI
	}

	format := strings.TrimPrefix(header, "data:image/")
	if i := strings.IndexByte(format, ';'); i >= 0 {
		format = format[:i]
	}
	if format == "" {
		format = "jpeg"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode receipt image: %w", err)
	}

	return data, format, nil
}
