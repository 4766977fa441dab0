// Package handlers provides the built-in SLURL commands that drive the
// appearance, outfit and inventory panels.
package handlers

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/reglet-dev/reglet-command-host/command"
	"github.com/reglet-dev/reglet-command-host/netutil"
	"github.com/reglet-dev/reglet-command-host/policy"
)

// Panel names passed to UI.ShowPanel.
const (
	PanelAppearance = "appearance"
	PanelOutfits    = "outfits_inventory"
	PanelInventory  = "inventory"
)

// DefaultHelpURL is the base for help topics.
const DefaultHelpURL = "https://wiki.secondlife.com/wiki/"

// Region coordinate limits.
const (
	regionWidth = 256.0
	maxAltitude = 4096.0
)

// UI is the part of the viewer the built-in commands drive.
type UI interface {
	// ShowPanel opens (or focuses) a panel, passing key to select its content.
	ShowPanel(name string, key map[string]string) bool
	// Teleport starts a teleport to the given region-local position.
	Teleport(region string, x, y, z float64) bool
	// OpenURL opens an external web page.
	OpenURL(rawURL string) bool
}

type config struct {
	helpURL string
}

// Option configures the built-in command table.
type Option func(*config)

// WithHelpURL overrides the help base URL.
func WithHelpURL(u string) Option {
	return func(c *config) {
		if u != "" {
			c.helpURL = u
		}
	}
}

// Builtins returns the built-in command table for registry.RegisterAll.
func Builtins(ui UI, opts ...Option) []command.Descriptor {
	cfg := config{helpURL: DefaultHelpURL}
	for _, opt := range opts {
		opt(&cfg)
	}
	return []command.Descriptor{
		{Name: "appearance", Access: policy.UntrustedAllow, Handler: &AppearanceHandler{UI: ui}},
		{Name: "outfits", Access: policy.UntrustedAllow, Handler: &OutfitsHandler{UI: ui}},
		{Name: "inventory", Access: policy.UntrustedAllow, Handler: &InventoryHandler{UI: ui}},
		{Name: "teleport", Access: policy.UntrustedThrottle, Handler: &TeleportHandler{UI: ui}},
		{Name: "openfloater", Access: policy.UntrustedBlock, Handler: &FloaterHandler{UI: ui}},
		{Name: "browser", Access: policy.UntrustedBlock, Handler: &BrowserHandler{UI: ui}},
		{Name: "help", Access: policy.UntrustedAllow, Handler: &HelpHandler{UI: ui, BaseURL: cfg.helpURL}},
	}
}

// AppearanceHandler opens the appearance side panel.
//
//	secondlife:///app/appearance          my outfits
//	secondlife:///app/appearance/edit     outfit editor
//	secondlife:///app/appearance/wearable wearable editor
type AppearanceHandler struct {
	UI UI
}

func (h *AppearanceHandler) Handle(_ context.Context, params command.Params, _ command.Query, _ command.Browser) bool {
	switch params.At(0) {
	case "":
		return h.UI.ShowPanel(PanelAppearance, map[string]string{"type": "my_outfits"})
	case "edit":
		return h.UI.ShowPanel(PanelAppearance, map[string]string{"type": "edit_outfit"})
	case "wearable":
		return h.UI.ShowPanel(PanelAppearance, map[string]string{"type": "edit_wearable"})
	default:
		return false
	}
}

// OutfitsHandler opens the outfits inventory panel on the requested tab.
type OutfitsHandler struct {
	UI UI
}

func (h *OutfitsHandler) Handle(_ context.Context, params command.Params, _ command.Query, _ command.Browser) bool {
	tab := "my_outfits"
	switch params.At(0) {
	case "", "my":
	case "wearing":
		tab = "cof"
	default:
		return false
	}
	return h.UI.ShowPanel(PanelOutfits, map[string]string{"tab": tab})
}

// InventoryHandler reveals an inventory item: inventory/<uuid>/select.
type InventoryHandler struct {
	UI UI
}

func (h *InventoryHandler) Handle(_ context.Context, params command.Params, _ command.Query, _ command.Browser) bool {
	if len(params) == 0 {
		return h.UI.ShowPanel(PanelInventory, nil)
	}
	id, err := uuid.Parse(params.At(0))
	if err != nil {
		return false
	}
	verb := params.At(1)
	if verb == "" {
		verb = "select"
	}
	if verb != "select" {
		return false
	}
	return h.UI.ShowPanel(PanelInventory, map[string]string{"select": id.String()})
}

// TeleportHandler teleports to teleport/<region>/<x>/<y>/<z>.
// Missing coordinates default to the region centre at ground level.
type TeleportHandler struct {
	UI UI
}

func (h *TeleportHandler) Handle(_ context.Context, params command.Params, _ command.Query, _ command.Browser) bool {
	region := strings.TrimSpace(params.At(0))
	if region == "" {
		return false
	}
	x, ok := coord(params.At(1), regionWidth/2, regionWidth)
	if !ok {
		return false
	}
	y, ok := coord(params.At(2), regionWidth/2, regionWidth)
	if !ok {
		return false
	}
	z, ok := coord(params.At(3), 0, maxAltitude)
	if !ok {
		return false
	}
	return h.UI.Teleport(region, x, y, z)
}

// coord parses a coordinate, clamping it to [0, limit]. NaN is rejected.
func coord(s string, def, limit float64) (float64, bool) {
	if s == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	switch {
	case v < 0:
		v = 0
	case v > limit:
		v = limit
	}
	return v, true
}

// FloaterHandler opens a floater by name, forwarding the query as its key.
type FloaterHandler struct {
	UI UI
}

func (h *FloaterHandler) Handle(_ context.Context, params command.Params, query command.Query, _ command.Browser) bool {
	name := params.At(0)
	if name == "" {
		return false
	}
	key := make(map[string]string, len(query))
	for k := range query {
		key[k] = query.Get(k)
	}
	return h.UI.ShowPanel(name, key)
}

// BrowserHandler opens an http(s) URL given as browser/<escaped url> or ?url=.
// URLs carrying credentials are refused.
type BrowserHandler struct {
	UI UI
}

func (h *BrowserHandler) Handle(_ context.Context, params command.Params, query command.Query, _ command.Browser) bool {
	raw := query.Get("url")
	if raw == "" {
		raw = strings.Join(params, "/")
	}
	u, ok := netutil.WebURL(raw)
	if !ok {
		return false
	}
	return h.UI.OpenURL(u.String())
}

// HelpHandler opens a help topic.
type HelpHandler struct {
	UI      UI
	BaseURL string
}

func (h *HelpHandler) Handle(_ context.Context, params command.Params, query command.Query, _ command.Browser) bool {
	topic := params.At(0)
	if topic == "" {
		topic = query.Get("topic")
	}
	base := h.BaseURL
	if base == "" {
		base = DefaultHelpURL
	}
	return h.UI.OpenURL(base + url.PathEscape(topic))
}
