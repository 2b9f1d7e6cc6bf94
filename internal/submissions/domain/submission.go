package domain

import "strings"

// StatusSuccess is the only status a committed result carries.
const StatusSuccess = "success"

// IdempotencyKey identifies one logical submission. It is supplied by the
// client and used as an exact-match lookup key.
type IdempotencyKey string

// IsZero reports whether the key is absent or blank.
func (k IdempotencyKey) IsZero() bool {
	return strings.TrimSpace(string(k)) == ""
}

func (k IdempotencyKey) String() string {
	return string(k)
}

// OrderPayload is the validated order input echoed back to the client.
type OrderPayload struct {
	Product string `json:"product" firestore:"product"`
	Qty     int64  `json:"qty" firestore:"qty"`
}

// StoredResult is persisted once per key and replayed for every later lookup.
type StoredResult struct {
	Status string       `json:"status" firestore:"status"`
	Data   OrderPayload `json:"data" firestore:"data"`
}

// NewSuccessResult builds the record committed for a fresh submission.
func NewSuccessResult(payload OrderPayload) StoredResult {
	return StoredResult{
		Status: StatusSuccess,
		Data:   payload,
	}
}

// Outcome tells callers which path produced a result.
type Outcome string

const (
	OutcomeCommit Outcome = "commit"
	OutcomeReplay Outcome = "replay"
)

// Submission is what the executor hands back for a single request.
type Submission struct {
	Result  StoredResult
	Outcome Outcome
}

// Replayed reports whether the result was read back rather than committed.
func (s Submission) Replayed() bool {
	return s.Outcome == OutcomeReplay
}
