// Package combobox is the selection model behind entity pickers: a search
// backed option list, single or multi selection, and optional create, rename
// and delete against the same endpoint.
package combobox

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"debate-platform-backend/internal/common/logger"
	"debate-platform-backend/internal/common/pagination"
)

var (
	ErrInvalidSettings = stderrors.New("combobox: invalid settings")
	ErrNotAllowed      = stderrors.New("combobox: operation not allowed")
	ErrEmptyLabel      = stderrors.New("combobox: label is empty")
	ErrUnknownOption   = stderrors.New("combobox: unknown option")
	// ErrStale is returned by a search superseded by a newer one.
	ErrStale = stderrors.New("combobox: search superseded")
)

const searchLimit = "20"

var fieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Client is the part of api.Client the combobox needs.
type Client interface {
	Get(ctx context.Context, path string, query map[string]string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

type Settings struct {
	Multi bool
	// Creatable adds typed text as a local option without a request.
	Creatable   bool
	AllowCreate bool
	AllowUpdate bool
	AllowDelete bool
}

// Format names the item fields shown as label and used as value.
type Format struct {
	LabelField string
	ValueField string
}

type Option struct {
	Label     string
	Value     string
	Transient bool
}

type Model struct {
	client   Client
	endpoint string
	settings Settings
	format   Format

	mu         sync.Mutex
	selected   []Option
	options    []Option
	lastSearch string
	gen        uint64
	cancel     context.CancelFunc
}

func New(client Client, endpoint string, settings Settings, format Format) (*Model, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidSettings)
	}
	endpoint = strings.TrimRight(endpoint, "/")
	if !strings.HasPrefix(endpoint, "/") {
		return nil, fmt.Errorf("%w: endpoint must start with /", ErrInvalidSettings)
	}
	if format.LabelField == "" {
		format.LabelField = "name"
	}
	if format.ValueField == "" {
		format.ValueField = "id"
	}
	if !fieldName.MatchString(format.LabelField) || !fieldName.MatchString(format.ValueField) {
		return nil, fmt.Errorf("%w: bad format fields %q/%q", ErrInvalidSettings, format.LabelField, format.ValueField)
	}
	if settings.Creatable && settings.AllowCreate {
		return nil, fmt.Errorf("%w: creatable and allow create are exclusive", ErrInvalidSettings)
	}

	return &Model{
		client:   client,
		endpoint: endpoint,
		settings: settings,
		format:   format,
	}, nil
}

func (m *Model) Selected() []Option {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Option(nil), m.selected...)
}

func (m *Model) Options() []Option {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Option(nil), m.options...)
}

// Toggle selects or deselects opt. Without Multi a new selection replaces
// the old one.
func (m *Model) Toggle(opt Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toggle(opt)
}

func (m *Model) toggle(opt Option) {
	if i := indexOf(m.selected, opt.Value); i >= 0 {
		m.selected = append(m.selected[:i], m.selected[i+1:]...)
		return
	}
	if !m.settings.Multi {
		m.selected = m.selected[:0]
	}
	m.selected = append(m.selected, opt)
}

// Search loads the options matching text. Starting a search cancels the one
// in flight; the cancelled call returns ErrStale and leaves options alone.
func (m *Model) Search(ctx context.Context, text string) ([]Option, error) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.lastSearch = text
	m.mu.Unlock()
	defer cancel()

	var page pagination.Page[map[string]any]
	err := m.client.Get(ctx, m.endpoint, map[string]string{
		"search": strings.TrimSpace(text),
		"page":   "1",
		"limit":  searchLimit,
	}, &page)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil, ErrStale
	}
	m.cancel = nil
	if err != nil {
		return nil, err
	}

	options := make([]Option, 0, len(page.Items))
	for _, item := range page.Items {
		options = append(options, m.optionOf(item))
	}
	m.options = options
	return append([]Option(nil), options...), nil
}

// Create turns free text into a selected option. A loaded option with the
// same label wins over creating a new one.
func (m *Model) Create(ctx context.Context, text string) (Option, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Option{}, ErrEmptyLabel
	}

	m.mu.Lock()
	for _, opt := range m.options {
		if strings.EqualFold(opt.Label, text) {
			if indexOf(m.selected, opt.Value) < 0 {
				m.toggle(opt)
			}
			m.mu.Unlock()
			return opt, nil
		}
	}
	if m.settings.Creatable {
		opt := Option{Label: text, Value: text, Transient: true}
		m.options = append(m.options, opt)
		m.toggle(opt)
		m.mu.Unlock()
		return opt, nil
	}
	m.mu.Unlock()

	if !m.settings.AllowCreate {
		return Option{}, ErrNotAllowed
	}

	var item map[string]any
	if err := m.client.Post(ctx, m.endpoint, map[string]string{m.format.LabelField: text}, &item); err != nil {
		return Option{}, err
	}
	opt := m.optionOf(item)

	m.mu.Lock()
	m.options = append(m.options, opt)
	m.toggle(opt)
	m.mu.Unlock()
	return opt, nil
}

// Update renames an option right away and puts the old label back when the
// request fails. A transient option only exists here and is renamed locally.
func (m *Model) Update(ctx context.Context, value, label string) error {
	label = strings.TrimSpace(label)

	m.mu.Lock()
	old, ok := m.find(value)
	if ok && old.Transient {
		defer m.mu.Unlock()
		if label == "" {
			return ErrEmptyLabel
		}
		m.relabel(value, label)
		return nil
	}
	m.mu.Unlock()

	if !m.settings.AllowUpdate {
		return ErrNotAllowed
	}
	if label == "" {
		return ErrEmptyLabel
	}
	if !ok {
		return ErrUnknownOption
	}

	m.mu.Lock()
	m.relabel(value, label)
	m.mu.Unlock()

	// только поле подписи: сервер оставляет остальные поля как есть
	err := m.client.Put(ctx, m.itemPath(value), map[string]string{m.format.LabelField: label}, nil)
	if err != nil {
		m.mu.Lock()
		m.relabel(value, old.Label)
		m.mu.Unlock()
		logger.Debug().Err(err).Str("value", value).Msg("combobox update rolled back")
		return err
	}
	return nil
}

// Remove drops the option locally, deletes it on the server and reloads the
// last search. A failed delete restores the option. A transient option is
// dropped without a request.
func (m *Model) Remove(ctx context.Context, value string) error {
	m.mu.Lock()
	if opt, ok := m.find(value); ok && opt.Transient {
		m.options = without(m.options, value)
		m.selected = without(m.selected, value)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if !m.settings.AllowDelete {
		return ErrNotAllowed
	}

	m.mu.Lock()
	prevOptions := append([]Option(nil), m.options...)
	prevSelected := append([]Option(nil), m.selected...)
	if _, ok := m.find(value); !ok {
		m.mu.Unlock()
		return ErrUnknownOption
	}
	m.options = without(m.options, value)
	m.selected = without(m.selected, value)
	search := m.lastSearch
	m.mu.Unlock()

	if err := m.client.Delete(ctx, m.itemPath(value)); err != nil {
		m.mu.Lock()
		m.options, m.selected = prevOptions, prevSelected
		m.mu.Unlock()
		return err
	}

	if _, err := m.Search(ctx, search); err != nil && !stderrors.Is(err, ErrStale) {
		return err
	}
	return nil
}

func (m *Model) itemPath(value string) string {
	return m.endpoint + "/" + url.PathEscape(value)
}

func (m *Model) optionOf(item map[string]any) Option {
	return Option{
		Label: stringOf(item[m.format.LabelField]),
		Value: stringOf(item[m.format.ValueField]),
	}
}

func (m *Model) find(value string) (Option, bool) {
	for _, list := range [][]Option{m.options, m.selected} {
		if i := indexOf(list, value); i >= 0 {
			return list[i], true
		}
	}
	return Option{}, false
}

func (m *Model) relabel(value, label string) {
	for _, list := range [][]Option{m.options, m.selected} {
		if i := indexOf(list, value); i >= 0 {
			list[i].Label = label
		}
	}
}

func indexOf(list []Option, value string) int {
	for i, opt := range list {
		if opt.Value == value {
			return i
		}
	}
	return -1
}

func without(list []Option, value string) []Option {
	out := make([]Option, 0, len(list))
	for _, opt := range list {
		if opt.Value != value {
			out = append(out, opt)
		}
	}
	return out
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}
