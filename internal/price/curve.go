package price

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"solana-agent-engine/internal/solana"
)

// BondingCurveSource prices pre-migration tokens from the ratio of virtual
// reserves in the launchpad's bonding curve account. It is the last resort:
// tokens still on the curve are not listed anywhere else.
type BondingCurveSource struct {
	rpc solana.RPCClient
}

// NewBondingCurveSource creates a bonding curve price source.
func NewBondingCurveSource(rpc solana.RPCClient) *BondingCurveSource {
	return &BondingCurveSource{rpc: rpc}
}

var _ TokenSource = (*BondingCurveSource)(nil)

func (s *BondingCurveSource) Name() string { return "bonding_curve" }

// Curve account layout: 8-byte discriminator, then five little-endian u64
// fields starting with virtual token and virtual SOL reserves.
const (
	curveDiscriminatorLen = 8
	curveMinLen           = curveDiscriminatorLen + 2*8
	curveTokenDecimals    = 6
)

// TokenPrice derives SOL per token from the curve's virtual reserve ratio.
func (s *BondingCurveSource) TokenPrice(ctx context.Context, mint, bondingCurve string) (float64, error) {
	if bondingCurve == "" {
		return 0, fmt.Errorf("no bonding curve account known for %s", mint)
	}

	data, err := s.rpc.GetAccountData(ctx, bondingCurve)
	if err != nil {
		return 0, fmt.Errorf("read curve account: %w", err)
	}
	if len(data) < curveMinLen {
		return 0, fmt.Errorf("curve account %s too short: %d bytes", bondingCurve, len(data))
	}

	virtualTokenReserves := binary.LittleEndian.Uint64(data[curveDiscriminatorLen:])
	virtualSolReserves := binary.LittleEndian.Uint64(data[curveDiscriminatorLen+8:])
	if virtualTokenReserves == 0 {
		return 0, fmt.Errorf("curve %s reports zero token reserves", bondingCurve)
	}

	solAmount := float64(virtualSolReserves) / float64(solana.LamportsPerSOL)
	tokenAmount := float64(virtualTokenReserves) / math.Pow10(curveTokenDecimals)
	return solAmount / tokenAmount, nil
}
