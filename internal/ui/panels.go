package ui

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"home-app/internal/router"
)

// PanelMeta is the metadata line at the top of a panel script:
//
//	-- {"name": "Climate", "enabled": true}
type PanelMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Panel is a Lua script drawn as a unit of the panels page.
type Panel struct {
	ID       string // filename stem
	Meta     PanelMeta
	Code     string
	FilePath string
}

func validPanelID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\") && !strings.Contains(id, "..")
}

// PanelManager loads panel scripts from a directory.
type PanelManager struct {
	dir    string
	logger *slog.Logger
}

// NewPanelManager creates a manager rooted at dir, creating dir if needed.
func NewPanelManager(dir string, logger *slog.Logger) (*PanelManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create panels dir: %w", err)
	}
	return &PanelManager{dir: dir, logger: logger.With("component", "panels")}, nil
}

// List returns every panel in the directory, sorted by id.
func (m *PanelManager) List() ([]*Panel, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read panels dir: %w", err)
	}

	var panels []*Panel
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lua") {
			continue
		}
		p, err := m.parseFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			m.logger.Warn("skip panel", "file", e.Name(), "err", err)
			continue
		}
		panels = append(panels, p)
	}
	sort.Slice(panels, func(i, j int) bool { return panels[i].ID < panels[j].ID })
	return panels, nil
}

// Get returns a single panel by id.
func (m *PanelManager) Get(id string) (*Panel, error) {
	if !validPanelID(id) {
		return nil, fmt.Errorf("invalid panel id: %q", id)
	}
	return m.parseFile(filepath.Join(m.dir, id+".lua"))
}

// Units builds one PanelUnit per enabled panel. The first panel ends up in
// front of the page.
func (m *PanelManager) Units(env *Env) []router.Unit {
	panels, err := m.List()
	if err != nil {
		m.logger.Error("list panels", "err", err)
		return nil
	}
	var units []router.Unit
	for i := len(panels) - 1; i >= 0; i-- {
		if !panels[i].Meta.Enabled {
			continue
		}
		units = append(units, NewPanelUnit(panels[i], env))
	}
	return units
}

func (m *PanelManager) parseFile(path string) (*Panel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p := &Panel{
		ID:       strings.TrimSuffix(filepath.Base(path), ".lua"),
		FilePath: path,
		Meta:     PanelMeta{Enabled: true},
	}

	code := string(data)
	first, rest, _ := strings.Cut(code, "\n")
	if strings.HasPrefix(first, "-- {") {
		if err := json.Unmarshal([]byte(strings.TrimPrefix(first, "-- ")), &p.Meta); err != nil {
			m.logger.Warn("panel metadata parse error", "file", path, "err", err)
		}
		code = rest
	}
	if p.Meta.Name == "" {
		p.Meta.Name = p.ID
	}
	p.Code = code
	return p, nil
}
