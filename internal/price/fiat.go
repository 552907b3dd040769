package price

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"solana-agent-engine/internal/solana"
)

// MarketMirrorSource reads the SOL/USD rate from a public market-data API.
// Two independent mirrors back the aggregator so a single provider outage
// never blanks the fiat rate.
type MarketMirrorSource struct {
	name    string
	url     string
	extract func([]byte) (float64, error)
	client  *http.Client
}

var _ FiatSource = (*MarketMirrorSource)(nil)

func (s *MarketMirrorSource) Name() string { return s.name }

// SOLPriceUSD fetches and extracts the rate from the mirror's payload.
func (s *MarketMirrorSource) SOLPriceUSD(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("create mirror request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: status %d", s.name, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read %s response: %w", s.name, err)
	}
	return s.extract(body)
}

// NewCoingeckoMirror reads {"solana":{"usd":N}} from a CoinGecko-style
// simple-price endpoint.
func NewCoingeckoMirror(baseURL string, timeout time.Duration) *MarketMirrorSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MarketMirrorSource{
		name:   "coingecko",
		url:    baseURL + "/simple/price?ids=solana&vs_currencies=usd",
		client: &http.Client{Timeout: timeout},
		extract: func(body []byte) (float64, error) {
			var result map[string]map[string]float64
			if err := json.Unmarshal(body, &result); err != nil {
				return 0, fmt.Errorf("decode coingecko response: %w", err)
			}
			p, ok := result["solana"]["usd"]
			if !ok {
				return 0, fmt.Errorf("coingecko response missing solana.usd")
			}
			return p, nil
		},
	}
}

// NewExchangeMirror reads {"price":"N"} from an exchange ticker endpoint.
func NewExchangeMirror(baseURL string, timeout time.Duration) *MarketMirrorSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MarketMirrorSource{
		name:   "exchange_ticker",
		url:    baseURL + "/ticker/price?symbol=SOLUSDT",
		client: &http.Client{Timeout: timeout},
		extract: func(body []byte) (float64, error) {
			var result struct {
				Price string `json:"price"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return 0, fmt.Errorf("decode ticker response: %w", err)
			}
			p, err := strconv.ParseFloat(result.Price, 64)
			if err != nil {
				return 0, fmt.Errorf("parse ticker price %q: %w", result.Price, err)
			}
			return p, nil
		},
	}
}

// OracleSource reads the SOL/USD rate from a Pyth-style on-chain price
// account. It is the fiat chain's last resort, independent of every HTTP
// market-data provider.
type OracleSource struct {
	rpc     solana.RPCClient
	account string
}

// NewOracleSource creates an oracle feed source over the price account.
func NewOracleSource(rpc solana.RPCClient, account string) *OracleSource {
	return &OracleSource{rpc: rpc, account: account}
}

var _ FiatSource = (*OracleSource)(nil)

func (s *OracleSource) Name() string { return "oracle" }

// Pyth price account offsets: exponent (i32) and the aggregate price (i64).
const (
	oracleExponentOffset = 20
	oraclePriceOffset    = 208
	oracleMinLen         = oraclePriceOffset + 8
)

// SOLPriceUSD parses the aggregate price from the oracle account.
func (s *OracleSource) SOLPriceUSD(ctx context.Context) (float64, error) {
	if s.account == "" {
		return 0, fmt.Errorf("no oracle account configured")
	}
	data, err := s.rpc.GetAccountData(ctx, s.account)
	if err != nil {
		return 0, fmt.Errorf("read oracle account: %w", err)
	}
	if len(data) < oracleMinLen {
		return 0, fmt.Errorf("oracle account too short: %d bytes", len(data))
	}

	exponent := int32(binary.LittleEndian.Uint32(data[oracleExponentOffset:]))
	raw := int64(binary.LittleEndian.Uint64(data[oraclePriceOffset:]))
	if raw <= 0 {
		return 0, fmt.Errorf("oracle reports non-positive price %d", raw)
	}
	return float64(raw) * math.Pow10(int(exponent)), nil
}
