package chain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned when no RPC endpoint was provided.
var ErrNotConfigured = errors.New("chain rpc url not configured")

// HeadOptions parameterise the head reader.
type HeadOptions struct {
	RPCURL  string
	Timeout time.Duration
}

// Head reads the latest block number from a node. It dials lazily so a
// missing node never blocks startup.
type Head struct {
	opts      HeadOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewHead builds a head reader.
func NewHead(opts HeadOptions, logger zerolog.Logger) *Head {
	return &Head{opts: opts, logger: logger.With().Str("component", "chain_head").Logger()}
}

// Configured reports whether an RPC endpoint is set.
func (h *Head) Configured() bool {
	return h != nil && h.opts.RPCURL != ""
}

// BlockNumber returns the node's latest block number.
func (h *Head) BlockNumber(ctx context.Context) (uint64, error) {
	if !h.Configured() {
		return 0, ErrNotConfigured
	}

	timeout := h.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := h.getClient(ctx)
	if err != nil {
		return 0, err
	}

	block, err := client.BlockNumber(ctx)
	if err != nil {
		h.logger.Debug().Err(err).Msg("block number query failed")
		return 0, err
	}
	return block, nil
}

// Close releases the node connection, if any.
func (h *Head) Close() {
	h.clientMux.Lock()
	defer h.clientMux.Unlock()
	if h.client != nil {
		h.client.Close()
		h.client = nil
	}
}

func (h *Head) getClient(ctx context.Context) (*ethclient.Client, error) {
	h.clientMux.Lock()
	defer h.clientMux.Unlock()

	if h.client != nil {
		return h.client, nil
	}

	client, err := ethclient.DialContext(ctx, h.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	h.client = client
	return client, nil
}
