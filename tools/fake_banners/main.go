package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/consentstudio/internal/assets"
	"github.com/patrickwarner/consentstudio/internal/config"
	"github.com/patrickwarner/consentstudio/internal/editor"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/observability"
	"github.com/patrickwarner/consentstudio/internal/save"
	"github.com/patrickwarner/consentstudio/internal/storage"
	"github.com/patrickwarner/consentstudio/internal/units"
)

var (
	count     = flag.Int("banners", 5, "number of banners to create")
	withLogos = flag.Bool("logos", true, "attach a generated logo to each banner")
	storeURL  = flag.String("url", "", "template store base url (defaults to TEMPLATE_STORE_URL or the local server)")
	seed      = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
)

var (
	titles = []string{"We value your privacy", "Cookies on this site", "Your choices matter", "Before you continue"}
	bodies = []string{
		"We use cookies to improve your experience and measure traffic.",
		"Some cookies are needed for the site to work. Others help us improve it.",
		"Choose which cookies you allow. You can change this at any time.",
	}
	layouts   = []string{models.LayoutBanner, models.LayoutModal, models.LayoutFloating}
	anchors   = []string{models.AnchorTop, models.AnchorBottom, models.AnchorCenter}
	colors    = []string{"#ffffff", "#f5f5f5", "#1f2937", "#0f172a", "#fef3c7"}
	gridCodes = []units.GridCode{units.TopLeft, units.TopRight, units.CenterCenter, units.BottomLeft}
)

func main() {
	flag.Parse()

	cfg := config.Load()
	logger, err := observability.InitLoggerWithService("fake-banners", cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	base := *storeURL
	if base == "" {
		base = cfg.TemplateStoreURL
	}
	if base == "" {
		base = cfg.PublicBaseURL
	}

	ctx := context.Background()
	client := storage.NewClient(base, cfg.TemplateStoreTimeout, logger, observability.NewNoOpRegistry())
	if err := client.HealthCheck(ctx); err != nil {
		logger.Fatal("template store unavailable", zap.String("url", base), zap.Error(err))
	}

	r := rand.New(rand.NewSource(*seed))
	registry := assets.NewMemoryRegistry()

	for i := 0; i < *count; i++ {
		res, err := createBanner(ctx, r, logger, client, registry, i)
		if err != nil {
			logger.Fatal("create banner", zap.Int("index", i), zap.Error(err))
		}
		logger.Info("banner created",
			zap.String("template_id", res.ID),
			zap.String("mode", res.Mode),
			zap.Int("uploaded", len(res.Uploaded)))
	}
}

func createBanner(ctx context.Context, r *rand.Rand, logger *zap.Logger, store storage.TemplateStore, registry assets.Registry, index int) (*save.Result, error) {
	ed := editor.New(logger)
	ed.SetName(fmt.Sprintf("%s #%d", pick(r, titles), index+1))

	for _, d := range models.Devices {
		ed.UpdateLayoutForDevice(d, "type", pick(r, layouts))
		ed.UpdateLayoutForDevice(d, "position", pick(r, anchors))
		ed.UpdateLayoutForDevice(d, "backgroundColor", pick(r, colors))
	}

	title := ed.AddComponent(models.ComponentText,
		editor.AtPosition("8%", "10%"),
		editor.WithContent(models.MultiLang(map[string]string{
			models.DefaultLanguage: pick(r, titles),
			"de":                   "Wir respektieren Ihre Privatsphäre",
		}, true)),
		editor.WithStyle(models.Style{"fontSize": "20px", "fontWeight": "bold"}))
	ed.AddComponent(models.ComponentText,
		editor.AtPosition("22%", "10%"),
		editor.WithContent(models.MultiLang(map[string]string{models.DefaultLanguage: pick(r, bodies)}, true)))
	ed.UpdateStyleForDevice(title, models.DeviceMobile, models.Style{"fontSize": "16px"})

	// Fixed measurements stand in for a live renderer.
	measured := units.StaticMeasurer{title: {
		Component: units.Box{Width: 300, Height: 40},
		Container: units.Box{Width: 375, Height: 667},
	}}
	ed.ApplyQuickPosition(ctx, title, models.DeviceMobile, units.TopCenter, measured)

	if *withLogos {
		logo := ed.AddComponent(models.ComponentImage, editor.AtPosition("5%", "80%"))
		token, err := assets.AttachNew(ctx, registry, models.BinaryHandle{
			Name: fmt.Sprintf("logo-%d.png", index+1),
			Data: logoPNG(r),
		})
		if err != nil {
			return nil, fmt.Errorf("attach logo: %w", err)
		}
		ed.AttachImage(logo, token, nil, "")
		ed.ApplyQuickPosition(ctx, logo, models.DeviceDesktop, gridCodes[r.Intn(len(gridCodes))], units.StaticMeasurer{logo: {
			Component: units.Box{Width: 64, Height: 64},
			Container: units.Box{Width: 1280, Height: 720},
		}})
	}

	return save.New(ed, store, registry, logger, observability.NewNoOpRegistry()).Save(ctx, nil)
}

// logoPNG draws a small two-colour square.
func logoPNG(r *rand.Rand) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fg := color.RGBA{R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256)), A: 255}
	bg := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/16+y/16)%2 == 0 {
				img.Set(x, y, fg)
			} else {
				img.Set(x, y, bg)
			}
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func pick(r *rand.Rand, xs []string) string {
	return xs[r.Intn(len(xs))]
}
