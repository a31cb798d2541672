// Package ledger guarda os produtos, as vendas, o saldo do caixa e o PIN da
// loja, junto com as regras que os alteram.
//
// Um Ledger é carregado de um store.Store. Cada operação calcula as novas
// coleções a partir das atuais, troca em memória e grava todas as chaves
// afetadas numa única transação do store. Se a gravação falha a mudança em
// memória é mantida e ErrPersistenceFailed é retornado; memória e store podem
// divergir até a próxima gravação bem sucedida. Chaves que falharam no Load
// não são gravadas (ErrKeyNotLoaded) até um Load posterior lê-las.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/jbrasil/stockledger/internal/store"
)

const (
	DefaultKeyPrefix = "jbrasil-"
	DefaultPassword  = "2828"

	keyInventory = "inventory"
	keySales     = "sales"
	keyCash      = "cash"
	keyPassword  = "password"
)

// Ledger mantém o estado autoritativo em memória
type Ledger struct {
	mu sync.Mutex

	store   store.Store
	logger  *zap.Logger
	meter   metric.Meter
	metrics *ledgerMetrics
	now     func() time.Time
	newID   func() string
	prefix  string

	// chaves que falharam no último Load; não são sobrescritas até carregarem
	unloaded map[string]struct{}

	products []Product
	sales    []Sale
	cash     decimal.Decimal
	password string
}

type Option func(*Ledger)

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithMeter registra os contadores do ledger no meter
func WithMeter(meter metric.Meter) Option {
	return func(l *Ledger) { l.meter = meter }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// WithKeyPrefix define o prefixo das quatro chaves do store
func WithKeyPrefix(prefix string) Option {
	return func(l *Ledger) { l.prefix = prefix }
}

// WithDefaultPassword define o PIN usado enquanto nenhum foi salvo
func WithDefaultPassword(pin string) Option {
	return func(l *Ledger) { l.password = pin }
}

// New cria uma nova instância de Ledger vazia. Chame Load para ler o estado salvo.
func New(st store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    st,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
		prefix:   DefaultKeyPrefix,
		cash:     decimal.Zero,
		password: DefaultPassword,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.metrics = newLedgerMetrics(l.meter, l.logger)
	return l
}

func (l *Ledger) key(name string) string {
	return l.prefix + name
}

// Load lê as quatro chaves. Chave ausente fica com o default. Chave que não
// pode ser lida ou decodificada é logada, fica com o default, entra no erro
// agregado e fica bloqueada para escrita; as demais carregam normalmente.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.unloaded = map[string]struct{}{}
	var errs []error
	fail := func(name string, err error) {
		l.unloaded[l.key(name)] = struct{}{}
		errs = append(errs, err)
	}

	var products []Product
	if found, err := l.loadJSON(ctx, keyInventory, &products); err != nil {
		fail(keyInventory, err)
	} else if found {
		l.products = products
	}

	var sales []Sale
	if found, err := l.loadJSON(ctx, keySales, &sales); err != nil {
		fail(keySales, err)
	} else if found {
		l.sales = sales
	}

	if raw, found, err := l.loadRaw(ctx, keyCash); err != nil {
		fail(keyCash, err)
	} else if found {
		cash, err := decimal.NewFromString(raw)
		if err != nil {
			l.logger.Error("failed to decode cash balance", zap.String("value", raw), zap.Error(err))
			fail(keyCash, fmt.Errorf("decoding %s: %w", l.key(keyCash), err))
		} else {
			l.cash = cash
		}
	}

	if raw, found, err := l.loadRaw(ctx, keyPassword); err != nil {
		fail(keyPassword, err)
	} else if found && raw != "" {
		l.password = raw
	}

	l.logger.Info("ledger loaded",
		zap.Int("products", len(l.products)),
		zap.Int("sales", len(l.sales)),
		zap.String("cash", l.cash.String()),
	)
	return errors.Join(errs...)
}

func (l *Ledger) loadRaw(ctx context.Context, name string) (string, bool, error) {
	raw, err := l.store.Get(ctx, l.key(name))
	if errors.Is(err, store.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		l.logger.Error("failed to read ledger key", zap.String("key", l.key(name)), zap.Error(err))
		return "", false, fmt.Errorf("%w: reading %s: %w", ErrPersistenceFailed, l.key(name), err)
	}
	return raw, true, nil
}

func (l *Ledger) loadJSON(ctx context.Context, name string, dst any) (bool, error) {
	raw, found, err := l.loadRaw(ctx, name)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		l.logger.Error("failed to decode ledger key", zap.String("key", l.key(name)), zap.Error(err))
		return false, fmt.Errorf("decoding %s: %w", l.key(name), err)
	}
	return true, nil
}

// persist grava as entradas numa transação do store. Quem chama segura l.mu e
// já trocou os valores em memória.
func (l *Ledger) persist(ctx context.Context, op string, entries map[string]string) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var blocked []string
	for _, k := range keys {
		if _, bad := l.unloaded[k]; bad {
			blocked = append(blocked, k)
		}
	}
	if len(blocked) > 0 {
		l.logger.Error("refusing to overwrite keys that failed to load",
			zap.String("operation", op),
			zap.Strings("keys", blocked),
		)
		l.metrics.persistenceFailed(ctx, op)
		return fmt.Errorf("%w: %s: %w: %s", ErrPersistenceFailed, op, ErrKeyNotLoaded, strings.Join(blocked, ", "))
	}

	if err := store.SetAll(ctx, l.store, entries); err != nil {
		l.logger.Error("failed to persist ledger state",
			zap.String("operation", op),
			zap.Strings("keys", keys),
			zap.Error(err),
		)
		l.metrics.persistenceFailed(ctx, op)
		return fmt.Errorf("%w: %s: %w", ErrPersistenceFailed, op, err)
	}
	return nil
}

func (l *Ledger) encodeProducts(entries map[string]string, products []Product) error {
	if products == nil {
		products = []Product{}
	}
	b, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encoding products: %w", err)
	}
	entries[l.key(keyInventory)] = string(b)
	return nil
}

func (l *Ledger) encodeSales(entries map[string]string, sales []Sale) error {
	if sales == nil {
		sales = []Sale{}
	}
	b, err := json.Marshal(sales)
	if err != nil {
		return fmt.Errorf("encoding sales: %w", err)
	}
	entries[l.key(keySales)] = string(b)
	return nil
}

func (l *Ledger) encodeCash(entries map[string]string, cash decimal.Decimal) {
	entries[l.key(keyCash)] = cash.String()
}

// Products retorna os produtos na ordem de exibição
func (l *Ledger) Products() []Product {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append(make([]Product, 0, len(l.products)), l.products...)
}

// Product busca um produto pelo id
func (l *Ledger) Product(id string) (Product, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.productIndex(id)
	if i < 0 {
		return Product{}, false
	}
	return l.products[i], true
}

// ProductsByCategory mantém a ordem de exibição
func (l *Ledger) ProductsByCategory(category Category) []Product {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Product, 0, len(l.products))
	for _, p := range l.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Sales retorna as vendas, mais recentes primeiro
func (l *Ledger) Sales() []Sale {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append(make([]Sale, 0, len(l.sales)), l.sales...)
}

// Sale busca uma venda pelo id
func (l *Ledger) Sale(id string) (Sale, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.saleIndex(id)
	if i < 0 {
		return Sale{}, false
	}
	return l.sales[i], true
}

// SalesFiltered retorna as vendas de uma categoria, ou todas quando category
// é vazia.
func (l *Ledger) SalesFiltered(category Category) []Sale {
	l.mu.Lock()
	defer l.mu.Unlock()
	return filterSales(l.sales, category)
}

// ProductSoldCount soma a quantidade das vendas de productID. Usa só as
// vendas, então continua respondendo depois que o produto é excluído.
func (l *Ledger) ProductSoldCount(productID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return soldCount(l.sales, productID)
}

// Cash retorna o saldo do caixa
func (l *Ledger) Cash() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

func (l *Ledger) productIndex(id string) int {
	return slices.IndexFunc(l.products, func(p Product) bool { return p.ID == id })
}

func (l *Ledger) saleIndex(id string) int {
	return slices.IndexFunc(l.sales, func(s Sale) bool { return s.ID == id })
}

func filterSales(sales []Sale, category Category) []Sale {
	out := make([]Sale, 0, len(sales))
	for _, s := range sales {
		if category == "" || s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

func soldCount(sales []Sale, productID string) int {
	total := 0
	for _, s := range sales {
		if s.ProductID == productID {
			total += s.Quantity
		}
	}
	return total
}
