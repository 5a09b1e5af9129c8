package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrBatchNotFound    = errors.New("batch not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")

	// Query engine taxonomy. Decomposition failures degrade to a single
	// sub-query; embedding and index failures skip one sub-query; model
	// failures during synthesis are fatal for the query.
	ErrDecomposition  = errors.New("decomposition failed")
	ErrEmbedding      = errors.New("embedding failed")
	ErrRetrievalIndex = errors.New("retrieval index failed")
	ErrModel          = errors.New("language model failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
