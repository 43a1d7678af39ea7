package documents

import "context"

// Store is the read-only access the renderer needs to business records.
type Store interface {
	Load(ctx context.Context, ref Ref) (Document, error)
	Lines(ctx context.Context, doc Document) ([]Line, error)
	Receipts(ctx context.Context, doc Document) ([]Receipt, error)
}
