package repository

import "context"

// ClientStateRepositoryI defines operations on the durable client-state table.
type ClientStateRepositoryI interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SlotI is one key of client state, as consumed by the session gate.
type SlotI interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, value []byte) error
	Delete(ctx context.Context) error
}

var (
	_ ClientStateRepositoryI = (*ClientStateRepository)(nil)
	_ SlotI                  = (*Slot)(nil)
)

// CredentialKey is the client-state key holding the serialized credential.
const CredentialKey = "auth"
