package cliutil

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsensei/chain-workers/internal/chain"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

func TestGasPriceCapWei(t *testing.T) {
	got := GasPriceCapWei(10)
	want := new(big.Int)
	want.SetString("10000000000", 10)
	assert.Equal(t, 0, got.Cmp(want))
}

func TestBuildAdapterTron(t *testing.T) {
	adapter, err := BuildAdapter(model.Chain{Name: "tron", Family: chain.FamilyTron, RPCURL: "https://api.trongrid.io"})
	require.NoError(t, err)
	assert.Equal(t, chain.FamilyTron, adapter.Family())
}

func TestBuildAdapterEVM(t *testing.T) {
	adapter, err := BuildAdapter(model.Chain{Name: "bsc", Family: chain.FamilyEVM, RPCURL: "http://localhost:8545"})
	require.NoError(t, err)
	assert.Equal(t, chain.FamilyEVM, adapter.Family())
}

func TestBuildAdapterUnknownFamily(t *testing.T) {
	_, err := BuildAdapter(model.Chain{Name: "mystery", Family: chain.Family("quantum")})
	assert.Error(t, err)
}
