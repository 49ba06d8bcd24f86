//go:build ignore

// Run: go run ./build-tools/loadgen.go -nats nats://localhost:4222 -subject dex.events -rps 200 -duration 60s

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"math"
	"math/big"
	mrand "math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"dexstats/internal/config"
	"dexstats/internal/domain"
	"dexstats/internal/ingest"
	natspub "dexstats/internal/pubsub/nats"
	"dexstats/internal/security"

	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

// mainnet USDC/WETH 0.05%, the reference pool of the sample config
const (
	factory = "0x1f98431c8ad98523631ae4a59f267346ea31f984"
	usdc    = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	weth    = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	pool    = "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640"

	initSqrtPrice = "1350174849792634181862360983626536"
	initTick      = 195285
)

type generator struct {
	chainID uint64
	block   uint64
	ts      int64
	logIdx  uint32
}

func main() {
	var (
		natsURL  = flag.String("nats", "nats://localhost:4222", "NATS url")
		subject  = flag.String("subject", "dex.events", "subject prefix, the chain id is appended")
		rps      = flag.Int("rps", 200, "swaps per second target")
		duration = flag.Duration("duration", 30*time.Second, "how long to run")
		chainID  = flag.Uint64("chain", 1, "chain id")
		cfgPath  = flag.String("config", "", "aggregator config; when set a read token is minted with its JWT private key")
	)
	flag.Parse()

	log := logger.New(lgcfg.LoggerCfg{Level: "info", Format: "console"})

	if *cfgPath != "" {
		if err := mintToken(log, *cfgPath, *chainID); err != nil {
			log.Errorf("mint token: %v", err)
			os.Exit(1)
		}
	}

	nc, err := natspub.New(log, &config.NATSConfig{URL: *natsURL, Name: "dexstats-loadgen"})
	if err != nil {
		log.Errorf("nats connect: %v", err)
		os.Exit(1)
	}
	defer func() { _ = nc.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g := &generator{chainID: *chainID, block: 12_369_621, ts: time.Now().Add(-24 * time.Hour).Unix()}
	topic := *subject + "." + strconv.FormatUint(*chainID, 10)

	publish := func(ev *domain.Event) bool {
		dto, err := ingest.FromModel(ev)
		if err != nil {
			log.Errorf("encode %s: %v", ev, err)
			return false
		}
		if err = nc.Publish(ctx, topic, dto); err != nil {
			log.Errorf("publish %s: %v", ev, err)
			return false
		}
		return true
	}

	for _, ev := range g.bootstrap() {
		if !publish(ev) {
			os.Exit(1)
		}
	}
	log.Infof("loadgen -> nats=%s subject=%s rps=%d duration=%s", *natsURL, topic, *rps, duration.String())

	end := time.Now().Add(*duration)

	// steady pace with a little drift
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	perTick := float64(*rps) / 10.0
	accum := 0.0
	sent := 0

loop:
	for {
		select {
		case <-ctx.Done():
			log.Info("signal received, stopping")
			break loop
		case now := <-tick.C:
			if now.After(end) {
				break loop
			}

			accum += perTick
			batch := int(math.Floor(accum))
			if batch <= 0 {
				continue
			}
			accum -= float64(batch)

			for i := 0; i < batch; i++ {
				if publish(g.swap()) {
					sent++
				}
			}
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = nc.Flush(flushCtx); err != nil {
		log.Errorf("flush: %v", err)
	}
	log.Infof("done, %d swaps sent", sent)
}

// next a new event position; every block carries a few logs twelve seconds apart
func (g *generator) next(kind domain.EventKind, src string, params domain.Params) *domain.Event {
	if g.logIdx >= 4 {
		g.block++
		g.ts += 12
		g.logIdx = 0
	}
	ev := &domain.Event{
		ChainID:         g.chainID,
		SrcAddress:      src,
		BlockNumber:     g.block,
		BlockTimestamp:  g.ts,
		TransactionHash: "0x" + randHex(64),
		TransactionFrom: "0x" + randHex(40),
		LogIndex:        g.logIdx,
		Kind:            kind,
		Params:          params,
	}
	g.logIdx++
	return ev
}

// bootstrap creates, initializes and funds the pool
func (g *generator) bootstrap() []*domain.Event {
	sqrt, _ := new(big.Int).SetString(initSqrtPrice, 10)
	owner := "0x" + randHex(40)
	return []*domain.Event{
		g.next(domain.KindPoolCreated, factory, domain.PoolCreatedParams{Token0: usdc, Token1: weth, Fee: big.NewInt(500), Pool: pool}),
		g.next(domain.KindInitialize, pool, domain.InitializeParams{SqrtPriceX96: sqrt, Tick: initTick}),
		g.next(domain.KindMint, pool, domain.MintParams{
			Sender:    owner,
			Owner:     owner,
			TickLower: 194280,
			TickUpper: 196260,
			Amount:    exp(big.NewInt(5), 18),
			Amount0:   exp(big.NewInt(25_000_000), 6), // 25M USDC
			Amount1:   exp(big.NewInt(10_000), 18),    // 10k WETH
		}),
	}
}

// swap random direction around a price of ~2500 USDC per WETH; the price does not move
func (g *generator) swap() *domain.Event {
	usd := int64(10 + mrand.Intn(50_000))
	amount0 := exp(big.NewInt(usd), 6)
	amount1 := new(big.Int).Div(exp(big.NewInt(usd), 18), big.NewInt(2500))
	if mrand.Intn(2) == 0 {
		amount1.Neg(amount1)
	} else {
		amount0.Neg(amount0)
	}

	sqrt, _ := new(big.Int).SetString(initSqrtPrice, 10)
	trader := "0x" + randHex(40)
	return g.next(domain.KindSwap, pool, domain.SwapParams{
		Sender:       trader,
		Recipient:    trader,
		Amount0:      amount0,
		Amount1:      amount1,
		SqrtPriceX96: sqrt,
		Liquidity:    exp(big.NewInt(5), 18),
		Tick:         initTick,
	})
}

func mintToken(log logger.Logger, path string, chainID uint64) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	signer, err := security.NewRS256Signer(&cfg.Security.JWT)
	if err != nil {
		return err
	}
	token, err := signer.Mint("loadgen", time.Hour, randHex(16), chainID)
	if err != nil {
		return err
	}
	log.Infof("read token for chain %d, valid 1h", chainID)
	fmt.Println(token)
	return nil
}

// exp v * 10^d
func exp(v *big.Int, d int64) *big.Int {
	return v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(d), nil))
}

func randHex(n int) string {
	b := make([]byte, n/2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
