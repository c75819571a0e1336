package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// RodHost renders checkout documents in a local Chromium page.
type RodHost struct {
	headless bool

	mu      sync.Mutex
	browser *rod.Browser
}

func NewRodHost(headless bool) *RodHost {
	return &RodHost{headless: headless}
}

func (h *RodHost) Available(context.Context) bool {
	_, found := launcher.LookPath()
	return found
}

func (h *RodHost) connect() (*rod.Browser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browser != nil {
		return h.browser, nil
	}

	u, err := launcher.New().Headless(h.headless).Leakless(false).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	h.browser = browser
	return browser, nil
}

func (h *RodHost) Show(ctx context.Context, document, bridge string, deliver func(raw []byte)) (func() error, error) {
	browser, err := h.connect()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	stop, err := page.Expose(bridge, func(arg gson.JSON) (interface{}, error) {
		deliver([]byte(arg.JSON("", "")))
		return nil, nil
	})
	if err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("expose bridge: %w", err)
	}

	if err := page.Context(ctx).SetDocumentContent(document); err != nil {
		_ = stop()
		_ = page.Close()
		return nil, fmt.Errorf("load checkout document: %w", err)
	}

	return func() error {
		_ = stop()
		return page.Close()
	}, nil
}

func (h *RodHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browser == nil {
		return nil
	}
	err := h.browser.Close()
	h.browser = nil
	return err
}
