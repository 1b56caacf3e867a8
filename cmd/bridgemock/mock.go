package main

import (
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Transaction mirrors the aggregation API transaction object.
type Transaction struct {
	ID               int64     `json:"id"                yaml:"id"`
	AccountID        int64     `json:"account_id"        yaml:"account_id"`
	CleanDescription string    `json:"clean_description" yaml:"clean_description"`
	BankDescription  string    `json:"bank_description"  yaml:"bank_description"`
	Amount           float64   `json:"amount"            yaml:"amount"`
	CurrencyCode     string    `json:"currency_code"     yaml:"currency_code"`
	Date             string    `json:"date"              yaml:"date"`
	CategoryID       *int64    `json:"category_id"       yaml:"category_id"`
	IsDeleted        bool      `json:"is_deleted"        yaml:"is_deleted"`
	UpdatedAt        time.Time `json:"updated_at"        yaml:"updated_at"`
}

type Category struct {
	ID         int64      `json:"id"                   yaml:"id"`
	Name       string     `json:"name"                 yaml:"name"`
	Categories []Category `json:"categories,omitempty" yaml:"categories,omitempty"`
}

type Bank struct {
	ID      int64  `json:"id"       yaml:"id"`
	Name    string `json:"name"     yaml:"name"`
	LogoURL string `json:"logo_url" yaml:"logo_url"`
}

type Item struct {
	ID                    int64  `json:"id"                      yaml:"id"`
	Status                int    `json:"status"                  yaml:"status"`
	StatusCodeInfo        string `json:"status_code_info"        yaml:"status_code_info"`
	StatusCodeDescription string `json:"status_code_description" yaml:"status_code_description"`
	BankID                int64  `json:"bank_id"                 yaml:"bank_id"`
}

type User struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Dataset is everything the mock serves. It can be loaded from a YAML file.
type Dataset struct {
	Users        []User        `yaml:"users"`
	Banks        []Bank        `yaml:"banks"`
	Items        []Item        `yaml:"items"`
	Categories   []Category    `yaml:"categories"`
	Transactions []Transaction `yaml:"transactions"`
}

// LoadDataset reads a YAML dataset file.
func LoadDataset(path string) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read dataset")
	}
	var d Dataset
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, errors.Wrap(err, "decode dataset")
	}
	return &d, nil
}

func ptr(v int64) *int64 { return &v }

// DefaultDataset covers the categories the built-in estimators match on.
func DefaultDataset(now time.Time) *Dataset {
	day := func(n int) string { return now.AddDate(0, 0, -n).Format("2006-01-02") }
	tx := func(id int64, clean, bank string, amount float64, date string, category int64) Transaction {
		return Transaction{
			ID: id, AccountID: 1001, CleanDescription: clean, BankDescription: bank,
			Amount: amount, CurrencyCode: "EUR", Date: date, CategoryID: ptr(category), UpdatedAt: now,
		}
	}
	return &Dataset{
		Users: []User{{Email: "demo@example.com", Password: "demo-password"}},
		Banks: []Bank{{ID: 408, Name: "Demo Bank", LogoURL: "https://example.com/demo-bank.png"}},
		Items: []Item{{ID: 501, Status: 0, StatusCodeInfo: "OK", StatusCodeDescription: "Synchronized", BankID: 408}},
		Categories: []Category{
			{ID: 1, Name: "Auto & Transport", Categories: []Category{{ID: 87, Name: "Gas & Fuel"}, {ID: 197, Name: "Train ticket"}, {ID: 309, Name: "Tolls"}}},
			{ID: 2, Name: "Food & Dining", Categories: []Category{{ID: 273, Name: "Groceries"}, {ID: 313, Name: "Coffee shop"}}},
			{ID: 3, Name: "Income", Categories: []Category{{ID: 230, Name: "Salaries"}}},
		},
		Transactions: []Transaction{
			tx(9001, "Total", "CB TOTAL STATION 0412", -60, day(1), 87),
			tx(9002, "SNCF", "CB SNCF INTERNET", -85.5, day(2), 197),
			tx(9003, "SNCF", "CB SNCF TER", -12.4, day(3), 197),
			tx(9004, "Carrefour", "CB CARREFOUR MARKET", -43.1, day(4), 273),
			tx(9005, "Vinci Autoroutes", "CB VINCI AUTOROUTES", -9.8, day(5), 309),
			tx(9006, "Acme Corp", "VIR ACME CORP SALAIRE", 2450, day(6), 230),
		},
	}
}

// Bridge is an in-memory aggregation API.
type Bridge struct {
	mu          sync.RWMutex
	data        *Dataset
	sessions    map[string]time.Time
	failureRate float64
	rng         *rand.Rand
	now         func() time.Time
}

func NewBridge(data *Dataset) *Bridge {
	return &Bridge{
		data:     data,
		sessions: map[string]time.Time{},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

type page struct {
	Resources  any `json:"resources"`
	Pagination struct {
		NextURI *string `json:"next_uri"`
	} `json:"pagination"`
}

func paginate[T any](c *gin.Context, all []T) page {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 {
		limit = 50
	}
	after, _ := strconv.Atoi(c.Query("after"))
	if after < 0 || after > len(all) {
		after = len(all)
	}
	end := after + limit
	if end > len(all) {
		end = len(all)
	}

	var p page
	p.Resources = all[after:end]
	if end < len(all) {
		q := c.Request.URL.Query()
		q.Set("after", strconv.Itoa(end))
		next := c.Request.URL.Path + "?" + q.Encode()
		p.Pagination.NextURI = &next
	}
	return p
}

func apiError(c *gin.Context, status int, typ, message string) {
	c.AbortWithStatusJSON(status, gin.H{"type": typ, "message": message})
}

// requireClient checks the application credentials every call carries.
func (b *Bridge) requireClient(c *gin.Context) {
	if c.GetHeader("Client-Id") == "" || c.GetHeader("Client-Secret") == "" {
		apiError(c, http.StatusUnauthorized, "invalid_client", "Client-Id and Client-Secret are required")
		return
	}
	b.mu.Lock()
	fail := b.failureRate > 0 && b.rng.Float64() < b.failureRate
	b.mu.Unlock()
	if fail {
		log.Warn().Str("path", c.Request.URL.Path).Msg("Injected failure")
		apiError(c, http.StatusServiceUnavailable, "unavailable", "Service temporarily unavailable")
	}
}

// requireSession checks the bearer token of user-scoped calls.
func (b *Bridge) requireSession(c *gin.Context) {
	const prefix = "Bearer "
	h := c.GetHeader("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		apiError(c, http.StatusUnauthorized, "missing_token", "Authorization header is required")
		return
	}
	b.mu.RLock()
	expires, ok := b.sessions[h[len(prefix):]]
	b.mu.RUnlock()
	if !ok || b.now().After(expires) {
		apiError(c, http.StatusUnauthorized, "invalid_token", "Session is invalid or expired")
	}
}

func (b *Bridge) Authenticate(c *gin.Context) {
	var req struct {
		Email    string `json:"email"    binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.data.Users {
		if u.Email == req.Email && u.Password == req.Password {
			token := uuid.NewString()
			expires := b.now().Add(2 * time.Hour)
			b.sessions[token] = expires
			log.Info().Str("email", req.Email).Msg("Session opened")
			c.JSON(http.StatusOK, gin.H{"access_token": token, "expires_at": expires})
			return
		}
	}
	apiError(c, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
}

func (b *Bridge) UpdatedTransactions(c *gin.Context) {
	since := time.Unix(0, 0)
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid_since", "since must be RFC3339")
			return
		}
		since = t
	}

	b.mu.RLock()
	var out []Transaction
	for _, tx := range b.data.Transactions {
		if !tx.UpdatedAt.Before(since) {
			out = append(out, tx)
		}
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })

	c.JSON(http.StatusOK, paginate(c, out))
}

func (b *Bridge) GetItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid_id", "item id must be numeric")
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, it := range b.data.Items {
		if it.ID == id {
			c.JSON(http.StatusOK, it)
			return
		}
	}
	apiError(c, http.StatusNotFound, "not_found", "item not found")
}

func (b *Bridge) GetBank(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid_id", "bank id must be numeric")
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, bank := range b.data.Banks {
		if bank.ID == id {
			c.JSON(http.StatusOK, bank)
			return
		}
	}
	apiError(c, http.StatusNotFound, "not_found", "bank not found")
}

func (b *Bridge) Categories(c *gin.Context) {
	b.mu.RLock()
	cats := b.data.Categories
	b.mu.RUnlock()
	c.JSON(http.StatusOK, paginate(c, cats))
}

// PutTransaction inserts or replaces a transaction and stamps it as updated now,
// so the next updated-transactions call returns it.
func (b *Bridge) PutTransaction(c *gin.Context) {
	var tx Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		apiError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if tx.ID == 0 || tx.AccountID == 0 {
		apiError(c, http.StatusBadRequest, "invalid_request", "id and account_id are required")
		return
	}
	if tx.CurrencyCode == "" {
		tx.CurrencyCode = "EUR"
	}

	b.mu.Lock()
	tx.UpdatedAt = b.now()
	replaced := false
	for i := range b.data.Transactions {
		if b.data.Transactions[i].ID == tx.ID {
			b.data.Transactions[i] = tx
			replaced = true
			break
		}
	}
	if !replaced {
		b.data.Transactions = append(b.data.Transactions, tx)
	}
	b.mu.Unlock()

	log.Info().Int64("id", tx.ID).Bool("replaced", replaced).Msg("Transaction stored")
	c.JSON(http.StatusOK, tx)
}

// UpdateConfig changes the injected failure rate at runtime.
func (b *Bridge) UpdateConfig(c *gin.Context) {
	var config struct {
		FailureRate *float64 `json:"failure_rate"`
	}
	if err := c.ShouldBindJSON(&config); err != nil {
		apiError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	b.mu.Lock()
	if config.FailureRate != nil && *config.FailureRate >= 0 && *config.FailureRate <= 1 {
		b.failureRate = *config.FailureRate
		log.Info().Float64("rate", *config.FailureRate).Msg("Updated failure rate")
	}
	rate := b.failureRate
	b.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"failure_rate": rate})
}

func SetupRouter(b *Bridge) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path, _ := url.PathUnescape(c.Request.URL.Path)
		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	v2 := router.Group("/v2", b.requireClient)
	{
		v2.POST("/authenticate", b.Authenticate)
		v2.GET("/banks/:id", b.GetBank)
		v2.GET("/categories", b.Categories)

		user := v2.Group("", b.requireSession)
		user.GET("/transactions/updated", b.UpdatedTransactions)
		user.GET("/items/:id", b.GetItem)
	}

	mock := router.Group("/mock")
	{
		mock.PUT("/transactions", b.PutTransaction)
		mock.PUT("/config", b.UpdateConfig)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	return router
}
