package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // Драйвер PostgreSQL

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/generator"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/handlers"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/mailer"
	appmiddleware "github.com/Lacherthompson/cash-safari-vault-sub000/internal/middleware"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/payments"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/realtime"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/repository"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/scheduler"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/services"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 30 * time.Second

	// Переменные окружения для Stripe.
	envStripeAPIKey        = "STRIPE_API_KEY" //nolint:gosec // Ложное срабатывание, это имя переменной окружения
	envStripeWebhookSecret = "STRIPE_WEBHOOK_SECRET"
	envStripePriceMonthly  = "STRIPE_PRICE_MONTHLY"
	envStripePriceYearly   = "STRIPE_PRICE_YEARLY"
	envStripePriceLifetime = "STRIPE_PRICE_LIFETIME"

	// Переменные окружения для почты и ссылок в письмах.
	envResendAPIKey      = "RESEND_API_KEY" //nolint:gosec // Ложное срабатывание, это имя переменной окружения
	envEmailFrom         = "EMAIL_FROM"
	envBaseURL           = "BASE_URL"
	envUnsubscribeSecret = "UNSUBSCRIBE_SECRET"

	defaultEmailFrom = "Копилка <hello@kopilka.app>"
	defaultBaseURL   = "http://localhost:8443"
)

// Переменная для подмены в тестах.
var newPostgresDB = repository.NewPostgresDB

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db             *sqlx.DB
	hub            *realtime.Hub
	scheduler      *scheduler.Scheduler
	authHandler    *handlers.AuthHandler
	vaultHandler   *handlers.VaultHandler
	memberHandler  *handlers.MembershipHandler
	paymentHandler *handlers.PaymentHandler
	subHandler     *handlers.SubscriptionHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера Копилки...")

	// .env опционален: в проде конфигурация приходит из окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используются переменные окружения")
	}

	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	// Инициализация зависимостей
	deps, err := setupDependencies(cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	// Отложенное закрытие соединения с БД
	defer func() {
		if deps.db != nil {
			if closeErr := deps.db.Close(); closeErr != nil {
				log.Printf("Ошибка закрытия соединения с БД: %v", closeErr)
			}
		}
	}()

	// Применяем миграции схемы
	if err = repository.RunMigrations(deps.db, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	// Фоновые рассылки
	deps.scheduler.Start()
	defer deps.scheduler.Stop()

	// Настройка роутера
	r := setupRouter(cfg.JWTSecret, deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	// С сертификатом и ключом поднимаем HTTPS, иначе HTTP (за обратным прокси)
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		log.Printf("Запуск HTTPS-сервера на порту %s...", cfg.Port)
		err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	} else {
		log.Printf("Запуск HTTP-сервера на порту %s (TLS не настроен)...", cfg.Port)
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка запуска сервера: %w", err)
	}
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	// 1. Подключение к БД
	deps.db, err = newPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}
	log.Println("Соединение с БД успешно установлено.")

	// 2. Создание репозиториев
	userRepo := repository.NewPostgresUserRepository(deps.db)
	vaultRepo := repository.NewPostgresVaultRepository(deps.db)
	tileRepo := repository.NewPostgresTileRepository(deps.db)
	memberRepo := repository.NewPostgresMembershipRepository(deps.db)
	inviteRepo := repository.NewPostgresInvitationRepository(deps.db)
	purchaseRepo := repository.NewPostgresPurchaseRepository(deps.db)

	// 3. Инфраструктура: генератор разбивки, события, почта, платежи
	gen := generator.New(nil)
	deps.hub = realtime.NewHub()

	tokens := mailer.NewTokenSigner(getEnv(envUnsubscribeSecret, cfg.JWTSecret))
	mail := mailer.NewResendMailer(mailer.Config{
		APIKey:  getEnv(envResendAPIKey, ""),
		From:    getEnv(envEmailFrom, defaultEmailFrom),
		BaseURL: getEnv(envBaseURL, defaultBaseURL),
	}, tokens)

	baseURL := getEnv(envBaseURL, defaultBaseURL)
	checkout := payments.NewStripeClient(payments.StripeConfig{
		APIKey:        getEnv(envStripeAPIKey, ""),
		WebhookSecret: getEnv(envStripeWebhookSecret, ""),
		Prices: map[string]string{
			payments.PlanMonthly:  getEnv(envStripePriceMonthly, ""),
			payments.PlanYearly:   getEnv(envStripePriceYearly, ""),
			payments.PlanLifetime: getEnv(envStripePriceLifetime, ""),
		},
		SuccessURL: baseURL + "/premium/success",
		CancelURL:  baseURL + "/premium",
	})

	// 4. Создание сервисов
	authService := services.NewAuthService(userRepo, services.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		Issuer:    "kopilka",
	})
	vaultService := services.NewVaultService(vaultRepo, tileRepo, memberRepo, gen, deps.hub)
	memberService := services.NewMembershipService(
		vaultRepo, tileRepo, memberRepo, inviteRepo, userRepo, gen, mail, deps.hub)
	paymentService := services.NewPaymentService(purchaseRepo, checkout)
	subService := services.NewSubscriptionService(userRepo, tokens)

	// 5. Планировщик рассылок
	deps.scheduler, err = scheduler.New(userRepo, vaultRepo, memberRepo, mail)
	if err != nil {
		if dbCloseErr := deps.db.Close(); dbCloseErr != nil {
			log.Printf("Ошибка закрытия соединения с БД при ошибке планировщика: %v", dbCloseErr)
		}
		return nil, fmt.Errorf("ошибка инициализации планировщика: %w", err)
	}

	// 6. Создание обработчиков
	deps.authHandler = handlers.NewAuthHandler(authService)
	deps.vaultHandler = handlers.NewVaultHandler(vaultService, deps.hub)
	deps.memberHandler = handlers.NewMembershipHandler(memberService)
	deps.paymentHandler = handlers.NewPaymentHandler(paymentService, checkout)
	deps.subHandler = handlers.NewSubscriptionHandler(subService)

	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(jwtSecret string, deps *dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	// Публичные маршруты вне /api
	r.Get("/unsubscribe", deps.subHandler.Unsubscribe)

	// Определяем базовый маршрут /api
	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты (регистрация, вход, вебхуки)
		r.Post("/register", deps.authHandler.Register)
		r.Post("/login", deps.authHandler.Login)
		r.Post("/webhooks/stripe", deps.paymentHandler.Webhook)

		// Приватные маршруты (требуют аутентификации)
		r.Group(func(r chi.Router) {
			// Применяем middleware аутентификации ко всей группе
			r.Use(appmiddleware.NewAuthenticator(jwtSecret))

			// Маршруты для работы с копилками
			r.Route("/vaults", func(r chi.Router) {
				r.Post("/", deps.vaultHandler.Create)
				r.Get("/", deps.vaultHandler.List)

				r.Route("/{vaultID}", func(r chi.Router) {
					r.Get("/", deps.vaultHandler.Get)
					r.Patch("/", deps.vaultHandler.Update)
					r.Delete("/", deps.vaultHandler.Delete)
					r.Post("/reset", deps.vaultHandler.Reset)
					r.Get("/events", deps.vaultHandler.Events)

					r.Post("/invitations", deps.memberHandler.Invite)
					r.Get("/members", deps.memberHandler.Members)
					r.Delete("/members/{memberID}", deps.memberHandler.Remove)
				})
			})

			// Плитки и приглашения адресуются своим ID
			r.Post("/tiles/{tileID}/toggle", deps.vaultHandler.ToggleTile)
			r.Post("/invitations/{invitationID}/accept", deps.memberHandler.Accept)

			// Оплата премиума
			r.Post("/checkout", deps.paymentHandler.Checkout)
		})
	})
	return r
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
