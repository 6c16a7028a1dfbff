// Command itemcf 加载评分数据，训练 Item-CF 相似度，并为一个物品输出最相似的物品。
//
//	itemcf -config app.yaml -item 0155061224 -top 5
//	itemcf -config app.yaml -serve :8080
//
// 未指定 -item 时使用数据中第一个物品。配置 publish.enabled 时把 i2i 列表与热门列表写入存储；
// 配置 pipeline 时再以该物品为种子跑一次召回 -> 过滤 -> 重排的 Pipeline。
// 指定 -serve（或 server.addr）时训练完成后启动 HTTP 服务，直到收到退出信号。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/rushteam/itemcf/config"
	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/model"
	"github.com/rushteam/itemcf/pipeline"
	"github.com/rushteam/itemcf/pkg/logging"
	"github.com/rushteam/itemcf/pkg/metrics"
	"github.com/rushteam/itemcf/recall"
	"github.com/rushteam/itemcf/server"
)

type options struct {
	configPath string
	itemID     string
	topN       int
	serveAddr  string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "application config (YAML)")
	flag.StringVar(&opts.itemID, "item", "", "item to query; defaults to the first item in the data")
	flag.IntVar(&opts.topN, "top", 0, "number of similar items; defaults to engine.top_n")
	flag.StringVar(&opts.serveAddr, "serve", "", "serve HTTP on this address after training; overrides server.addr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, opts); err != nil {
		fmt.Fprintln(os.Stderr, "itemcf:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, opts options) error {
	cfg, err := config.LoadAppConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Log)
	itemID, topN := opts.itemID, opts.topN
	if topN <= 0 {
		topN = cfg.Engine.TopN
	}
	if opts.serveAddr != "" {
		cfg.Server.Addr = opts.serveAddr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	loader, err := cfg.Data.NewLoader(nil, logger)
	if err != nil {
		return err
	}
	frame, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}
	fmt.Fprintf(out, "Data Loaded. Rows: %d\n", frame.Nrow())

	engine := model.NewItemCF(model.WithLogger(logger))
	if err := engine.Prepare(frame); err != nil && !core.IsEmptyInput(err) {
		return err
	}
	start := time.Now()
	if err := engine.Train(); err != nil {
		return err
	}
	elapsed := time.Since(start)
	m.ObserveTrain(elapsed, engine.Stats())
	fmt.Fprintf(out, "Training completed in %.2f seconds.\n", elapsed.Seconds())

	if itemID == "" {
		ids := engine.ItemIDs()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No items to query.")
			return nil
		}
		itemID = ids[0]
	}
	fmt.Fprintf(out, "\nGenerating recommendations for item: %s\n", itemID)

	recs, found, err := engine.Recommend(itemID, topN)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(out, "Item not found in database.")
	} else {
		fmt.Fprintf(out, "Top %d recommended items:\n", len(recs))
		for i, title := range recs {
			fmt.Fprintf(out, "%d. %s\n", i+1, title)
		}
	}

	kv, err := publish(ctx, cfg, engine, m, logger)
	if err != nil {
		return err
	}
	if kv != nil {
		defer kv.Close()
	}

	var p *pipeline.Pipeline
	if cfg.Pipeline != "" {
		if p, err = buildPipeline(cfg.Pipeline, engine, kv, logger); err != nil {
			return err
		}
		p.Observer = m
		if found {
			if err := runPipeline(ctx, out, p, itemID); err != nil {
				return err
			}
		}
	}

	if cfg.Server.Addr == "" {
		return nil
	}
	srv := server.New(cfg.Server, server.Deps{
		Engine:   engine,
		Pipeline: p,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})
	return srv.ListenAndServe(ctx)
}

// publish 在启用时写入配置的存储；未启用但配置了 pipeline 时写入内存存储，供 store_i2i 召回使用。
func publish(
	ctx context.Context,
	cfg *config.AppConfig,
	engine *model.ItemCF,
	m *metrics.Metrics,
	logger zerolog.Logger,
) (core.Store, error) {
	if !cfg.Publish.Enabled && cfg.Pipeline == "" {
		return nil, nil
	}
	kv, err := cfg.OpenStore(ctx, logger)
	if err != nil {
		return nil, err
	}

	p := &recall.Publisher{
		Store:     kv,
		KeyPrefix: cfg.Publish.KeyPrefix,
		TopN:      cfg.Engine.TopN,
		TTL:       cfg.Publish.TTL,
	}
	n, err := p.Publish(ctx, engine)
	if err != nil {
		return nil, errors.Join(err, kv.Close())
	}
	if err := p.PublishHot(ctx, engine, cfg.Publish.HotKey, cfg.Publish.HotN); err != nil {
		return nil, errors.Join(err, kv.Close())
	}
	m.PublishedKeys.Add(float64(n))
	logger.Info().Str("store", kv.Name()).Int("keys", n).Str("prefix", cfg.Publish.KeyPrefix).Msg("i2i lists published")
	return kv, nil
}

func buildPipeline(path string, engine *model.ItemCF, kv core.Store, logger zerolog.Logger) (*pipeline.Pipeline, error) {
	pcfg, err := pipeline.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load pipeline: %w", err)
	}
	factory := config.NewFactory(config.Deps{Engine: engine, Store: kv, Logger: logger})
	if err := config.ValidatePipelineConfig(pcfg, factory); err != nil {
		return nil, err
	}
	p, err := pcfg.BuildPipeline(factory)
	if err != nil {
		return nil, err
	}
	p.Logger = logger
	return p, nil
}

func runPipeline(ctx context.Context, out io.Writer, p *pipeline.Pipeline, itemID string) error {
	rctx := &core.RecommendContext{
		Scene:  p.Name,
		Params: map[string]any{core.ParamItemID: itemID},
	}
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}
	fmt.Fprintf(out, "\nPipeline %q results:\n", p.Name)
	for i, it := range items {
		fmt.Fprintf(out, "%d. %s (%s) score=%.4f source=%s\n",
			i+1, it.Title, it.ID, it.Score, it.Labels["recall_source"].Value)
	}
	return nil
}
