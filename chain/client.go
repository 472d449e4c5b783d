package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	auth "github.com/tokenestate/go-estate-auth"
)

// Backend is what the adapter needs from a node connection. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Property is a registry entry
type Property struct {
	ID            uint64
	Name          string
	Token         common.Address
	AccessControl common.Address
	Active        bool
}

// Config describes how to reach the chain.
type Config struct {
	RPCURL    string
	ChainID   int64
	Registry  string
	SignerKey string
}

// Client grants roles on property access-control contracts and reads the
// property registry.
type Client struct {
	backend  Backend
	registry *bind.BoundContract
	signer   *bind.TransactOpts
	logger   auth.Logger
}

// Option customizes the client
type Option func(*Client)

// WithSigner sets the transactor used for grants.
func WithSigner(opts *bind.TransactOpts) Option {
	return func(c *Client) {
		c.signer = opts
	}
}

// WithLogger overrides the logger.
func WithLogger(logger auth.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient binds the registry at registryAddr on backend.
func NewClient(backend Backend, registryAddr string, opts ...Option) (*Client, error) {
	if !ValidAddress(registryAddr) {
		return nil, auth.ValidationError(nil, fmt.Sprintf("invalid registry address %q", registryAddr))
	}
	_, logger := auth.ResolveLogger("chain", nil, nil)
	addr := common.HexToAddress(registryAddr)
	c := &Client{
		backend:  backend,
		registry: bind.NewBoundContract(addr, registryABI, backend, backend, backend),
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Dial connects to cfg.RPCURL and, when a signer key is set, prepares the
// transactor for cfg.ChainID.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, auth.NetworkError(err, "failed to dial chain rpc")
	}
	if cfg.SignerKey != "" {
		signer, err := NewSigner(cfg.SignerKey, cfg.ChainID)
		if err != nil {
			rpc.Close()
			return nil, err
		}
		opts = append([]Option{WithSigner(signer)}, opts...)
	}
	c, err := NewClient(rpc, cfg.Registry, opts...)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	return c, nil
}

// NewSigner builds a transactor from a hex encoded private key.
func NewSigner(hexKey string, chainID int64) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, auth.ValidationError(err, "invalid signer key")
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, auth.ValidationError(err, "failed to build signer")
	}
	return opts, nil
}

// SignerAddress is the account grants are sent from, zero when unset.
func (c *Client) SignerAddress() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.From
}

// PropertyCount returns the number of registered properties.
func (c *Client) PropertyCount(ctx context.Context) (uint64, error) {
	var out []any
	if err := c.registry.Call(&bind.CallOpts{Context: ctx}, &out, "getPropertyCount"); err != nil {
		return 0, auth.NetworkError(err, "getPropertyCount failed")
	}
	if len(out) == 0 {
		return 0, auth.NetworkError(nil, "getPropertyCount returned nothing")
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return 0, auth.NetworkError(nil, "getPropertyCount returned an unexpected type")
	}
	return n.Uint64(), nil
}

// Property reads one registry entry.
func (c *Client) Property(ctx context.Context, id uint64) (Property, error) {
	var out []any
	if err := c.registry.Call(&bind.CallOpts{Context: ctx}, &out, "getProperty", new(big.Int).SetUint64(id)); err != nil {
		return Property{}, auth.NetworkError(err, fmt.Sprintf("getProperty(%d) failed", id))
	}
	return decodeProperty(id, out)
}

// Properties reads every registry entry in id order.
func (c *Client) Properties(ctx context.Context) ([]Property, error) {
	count, err := c.PropertyCount(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Property, 0, count)
	for id := uint64(0); id < count; id++ {
		p, err := c.Property(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeProperty(id uint64, out []any) (Property, error) {
	if len(out) != 4 {
		return Property{}, auth.NetworkError(nil, fmt.Sprintf("getProperty(%d) returned %d values", id, len(out)))
	}
	name, _ := out[0].(string)
	token, ok1 := out[1].(common.Address)
	access, ok2 := out[2].(common.Address)
	active, _ := out[3].(bool)
	if !ok1 || !ok2 {
		return Property{}, auth.NetworkError(nil, fmt.Sprintf("getProperty(%d) returned unexpected types", id))
	}
	return Property{ID: id, Name: name, Token: token, AccessControl: access, Active: active}, nil
}

// HasRole checks the property's access control contract.
func (c *Client) HasRole(ctx context.Context, propertyID uint64, role RoleType, account string) (bool, error) {
	p, err := c.Property(ctx, propertyID)
	if err != nil {
		return false, err
	}
	ac := c.accessControl(p.AccessControl)

	var out []any
	if err := ac.Call(&bind.CallOpts{Context: ctx}, &out, "hasRole", role.ID(), common.HexToAddress(account)); err != nil {
		return false, auth.NetworkError(err, "hasRole failed")
	}
	if len(out) == 0 {
		return false, nil
	}
	ok, _ := out[0].(bool)
	return ok, nil
}

// GrantRole sends grantRole(role, grantee) to the property's access control
// contract and waits for it to be mined. It returns the transaction hash.
// Reverts and signer failures are ErrChainTransaction.
func (c *Client) GrantRole(ctx context.Context, propertyID uint64, role RoleType, grantee string) (string, error) {
	meta := map[string]any{"property_id": propertyID, "role": string(role), "grantee": grantee}

	if !role.IsValid() {
		return "", auth.NewKindError(auth.ErrValidation, nil, "unknown role type "+string(role), meta)
	}
	if !ValidAddress(grantee) {
		return "", auth.NewKindError(auth.ErrValidation, nil, "invalid grantee address", meta)
	}
	if c.signer == nil {
		return "", auth.ChainTransactionError(nil, "no signer configured", meta)
	}

	p, err := c.Property(ctx, propertyID)
	if err != nil {
		return "", err
	}
	if p.AccessControl == (common.Address{}) {
		return "", auth.ChainTransactionError(nil, "property has no access control contract", meta)
	}

	opts := *c.signer
	opts.Context = ctx

	tx, err := c.accessControl(p.AccessControl).Transact(&opts, "grantRole", role.ID(), common.HexToAddress(grantee))
	if err != nil {
		return "", auth.ChainTransactionError(err, "grantRole rejected", meta)
	}

	txRef := tx.Hash().Hex()
	meta["tx"] = txRef
	c.logger.Debug("grantRole sent", "property_id", propertyID, "role", role, "tx", txRef)

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return txRef, auth.ChainTransactionError(err, "waiting for grantRole receipt failed", meta)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return txRef, auth.ChainTransactionError(nil, "grantRole reverted", meta)
	}
	return txRef, nil
}

func (c *Client) accessControl(addr common.Address) *bind.BoundContract {
	return bind.NewBoundContract(addr, accessControlABI, c.backend, c.backend, c.backend)
}
