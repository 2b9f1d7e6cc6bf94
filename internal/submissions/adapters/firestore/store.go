package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	gcfirestore "cloud.google.com/go/firestore"
	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/dejobratic/ordersubmit/internal/submissions/ports"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	DefaultCollection = "idempotency"

	encodedPrefix  = "k~"
	hashedPrefix   = "k#"
	maxDocumentID  = 1500
	healthDocument = "_readiness_check"
)

type document struct {
	Key       string              `firestore:"key"`
	Status    string              `firestore:"status"`
	Data      domain.OrderPayload `firestore:"data"`
	CreatedAt time.Time           `firestore:"created_at,serverTimestamp"`
}

// Store keeps one document per idempotency key. DocumentRef.Create fails
// with AlreadyExists when the document is present, which makes it the
// conditional write.
type Store struct {
	client     *gcfirestore.Client
	collection string
}

// NewClient connects using Application Default Credentials, which honour
// GOOGLE_APPLICATION_CREDENTIALS and FIRESTORE_EMULATOR_HOST.
func NewClient(ctx context.Context, projectID string) (*gcfirestore.Client, error) {
	client, err := gcfirestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return client, nil
}

func NewStore(client *gcfirestore.Client, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection}
}

func (s *Store) Get(ctx context.Context, key domain.IdempotencyKey) (*domain.StoredResult, error) {
	snap, err := s.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, wrapError("firestore get", err)
	}

	var doc document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode stored result: %w", err)
	}
	return &domain.StoredResult{Status: doc.Status, Data: doc.Data}, nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) (bool, error) {
	_, err := s.doc(key).Create(ctx, document{
		Key:    strings.ToValidUTF8(key.String(), "\uFFFD"),
		Status: result.Status,
		Data:   result.Data,
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, wrapError("firestore create", err)
	}
	return true, nil
}

// Ping reads a document that never exists; NotFound proves the backend answered.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(s.collection).Doc(healthDocument).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore ping: %w: %w", ports.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) doc(key domain.IdempotencyKey) *gcfirestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(documentID(key.String()))
}

// documentID uses the key verbatim when Firestore accepts it as a document
// ID. Other keys are base64url encoded under "k~", or hashed under "k#" when
// the encoding would exceed the ID limit. Raw keys carrying either prefix are
// never used verbatim, so distinct keys never share a document.
func documentID(key string) string {
	if isPlainDocumentID(key) {
		return key
	}
	if encoded := encodedPrefix + base64.RawURLEncoding.EncodeToString([]byte(key)); len(encoded) <= maxDocumentID {
		return encoded
	}
	sum := sha256.Sum256([]byte(key))
	return hashedPrefix + hex.EncodeToString(sum[:])
}

func isPlainDocumentID(key string) bool {
	switch {
	case key == "" || key == "." || key == "..":
		return false
	case len(key) > maxDocumentID:
		return false
	case !utf8.ValidString(key):
		return false
	case strings.Contains(key, "/"):
		return false
	case strings.HasPrefix(key, "__") && strings.HasSuffix(key, "__"):
		return false
	case strings.HasPrefix(key, encodedPrefix), strings.HasPrefix(key, hashedPrefix):
		return false
	}
	return true
}

func wrapError(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, ports.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
