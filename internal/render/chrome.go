package render

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/model"
)

var _ Renderer = (*ChromeRenderer)(nil)

// ChromeRenderer executes vanilla JavaScript apps in headless Chrome and
// captures a screenshot plus the resulting DOM.
type ChromeRenderer struct {
	cfg    Config
	logger logging.Logger

	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

func NewChromeRenderer(cfg Config, logger logging.Logger) (*ChromeRenderer, error) {
	def := DefaultConfig()
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = def.IdleAfter
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = logging.Nop()
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	opts = append(opts, chromedp.WindowSize(cfg.Width, cfg.Height))

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeRenderer{
		cfg:         cfg,
		logger:      logger.With(logging.Field{Key: "component", Value: "chrome_renderer"}),
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
	}, nil
}

// Supports reports whether ext can be executed directly in a page. JSX and TSX
// need a build step and are analyzed from source only.
func (r *ChromeRenderer) Supports(ext string) bool {
	return strings.EqualFold(ext, ".js")
}

func (r *ChromeRenderer) Render(ctx context.Context, req model.AnalysisRequest) (*Attachment, error) {
	if !r.Supports(req.Metadata.Extension) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, req.Metadata.Extension)
	}

	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.cfg.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	doc := Shell(req.Content, req.Metadata.Name, r.cfg.Width, r.cfg.Height)
	idle := waitNetworkIdle(tabCtx, r.cfg.IdleAfter)

	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(r.cfg.Width), int64(r.cfg.Height)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc).Do(ctx)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("loading app page: %w", err)
	}

	select {
	case <-idle:
	case <-tabCtx.Done():
		return nil, fmt.Errorf("waiting for network idle: %w", tabCtx.Err())
	}

	var (
		shot []byte
		dom  string
	)
	err = chromedp.Run(tabCtx,
		chromedp.FullScreenshot(&shot, 100),
		chromedp.OuterHTML("html", &dom),
	)
	if err != nil {
		return nil, fmt.Errorf("capturing app page: %w", err)
	}

	att := &Attachment{Image: shot, DOM: dom}
	metrics, err := ComputeMetrics(shot)
	if err != nil {
		r.logger.Warn("visual metrics unavailable", logging.Field{Key: "error", Value: err})
	} else {
		att.Metrics = metrics
	}

	r.logger.Debug("rendered app",
		logging.Field{Key: "file", Value: req.Metadata.Name},
		logging.Field{Key: "screenshot_bytes", Value: len(shot)})
	return att, nil
}

// Close shuts down the browser.
func (r *ChromeRenderer) Close() error {
	r.cancelAlloc()
	return nil
}

// waitNetworkIdle returns a channel that is closed once no request has been in
// flight for idleAfter. The idle timer also runs from the start, so a page that
// never touches the network is idle after idleAfter.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idleChan := make(chan struct{})
	var (
		activeReqs int32
		timer      *time.Timer
		timerMu    sync.Mutex
		once       sync.Once
	)

	startTimer := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() { close(idleChan) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) <= 0 {
				atomic.StoreInt32(&activeReqs, 0)
				startTimer()
			}
		}
	})
	startTimer()

	return idleChan
}
