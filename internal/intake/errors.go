package intake

import "fmt"

// Messages returned to callers. They are shown to end users verbatim.
const (
	MsgMissingSourceURL  = "Missing source_url"
	MsgMissingAddress    = "Missing address"
	MsgUnsupportedURL    = "Unsupported listing URL. Paste a Zillow, Redfin, or Realtor.com link."
	MsgInvalidBody       = `Invalid request body. Send { listing: {...} } or { url: "..." }`
	MsgLinkNotFound      = "Link not found or expired"
	MsgLinkUsed          = "This link has already been used"
	MsgAlreadyConfirmed  = "Already confirmed"
	MsgAddressRequired   = "Address is required"
	MsgNeedsConfirmation = "Could not extract listing data. Please confirm the address via the link."
)

// ValidationError is a missing or malformed required field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UnsupportedSourceError is a url-only request for a site we cannot ingest.
type UnsupportedSourceError struct {
	URL string
}

func (e *UnsupportedSourceError) Error() string { return MsgUnsupportedURL }

// InvalidRequestError is a body that is neither a capture nor a url request.
type InvalidRequestError struct {
	Details string
}

func (e *InvalidRequestError) Error() string {
	if e.Details == "" {
		return MsgInvalidBody
	}
	return fmt.Sprintf("%s: %s", MsgInvalidBody, e.Details)
}

// NotFoundError is an unknown or expired confirmation token.
type NotFoundError struct {
	Token string
}

func (e *NotFoundError) Error() string { return MsgLinkNotFound }

// AlreadyConfirmedError is a confirmation token that was already consumed.
type AlreadyConfirmedError struct {
	Message string
}

func (e *AlreadyConfirmedError) Error() string { return e.Message }
