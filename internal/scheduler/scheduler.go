package scheduler

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/mailer"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/repository"
)

// Расписания запусков (время сервера).
const (
	dripSpec     = "0 9 * * *"  // Прогревочная рассылка - каждый день в 9:00
	reminderSpec = "0 10 * * *" // Напоминания о стрике - каждый день в 10:00
)

// Scheduler запускает фоновые рассылки по расписанию.
type Scheduler struct {
	cron       *cron.Cron
	userRepo   repository.UserRepository
	vaultRepo  repository.VaultRepository
	memberRepo repository.MembershipRepository
	mail       mailer.Mailer
}

// New создает планировщик с задачами рассылок.
func New(
	userRepo repository.UserRepository,
	vaultRepo repository.VaultRepository,
	memberRepo repository.MembershipRepository,
	mail mailer.Mailer,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(),
		userRepo:   userRepo,
		vaultRepo:  vaultRepo,
		memberRepo: memberRepo,
		mail:       mail,
	}

	if _, err := s.cron.AddFunc(dripSpec, s.runDrip); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(reminderSpec, s.runStreakReminders); err != nil {
		return nil, err
	}
	return s, nil
}

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[Scheduler] Планировщик запущен: рассылка '%s', напоминания '%s'", dripSpec, reminderSpec)
}

// Stop останавливает планировщик и дожидается завершения текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[Scheduler] Планировщик остановлен")
}

// runDrip рассылает прогревочные письма пользователям, зарегистрированным
// ровно N дней назад, для каждого дня из набора шаблонов.
func (s *Scheduler) runDrip() {
	ctx := context.Background()

	for _, day := range s.mail.DripDays() {
		users, err := s.userRepo.ListSignedUpDaysAgo(ctx, day)
		if err != nil {
			log.Printf("[Scheduler] Ошибка выборки пользователей для письма дня %d: %v", day, err)
			continue
		}
		for _, user := range users {
			if err := s.mail.SendDrip(user.Email, user.ID, user.Username, day); err != nil {
				log.Printf("[Scheduler] Письмо дня %d для '%s' не доставлено: %v", day, user.Email, err)
				continue
			}
		}
		if len(users) > 0 {
			log.Printf("[Scheduler] Письмо дня %d разослано %d пользователям", day, len(users))
		}
	}
}

// runStreakReminders напоминает участникам копилок, чей стрик истекает
// сегодня (последний день окна кадентности без активности).
func (s *Scheduler) runStreakReminders() {
	ctx := context.Background()

	vaults, err := s.vaultRepo.ListNeedingReminder(ctx)
	if err != nil {
		log.Printf("[Scheduler] Ошибка выборки копилок для напоминаний: %v", err)
		return
	}

	sent := 0
	for _, vault := range vaults {
		members, err := s.memberRepo.ListMembersByVault(ctx, vault.ID)
		if err != nil {
			log.Printf("[Scheduler] Ошибка выборки участников копилки %d: %v", vault.ID, err)
			continue
		}
		for _, member := range members {
			user, err := s.userRepo.GetUserByID(ctx, member.UserID)
			if err != nil {
				continue
			}
			if user.EmailOptOut {
				continue
			}
			if err := s.mail.SendStreakReminder(user.Email, user.ID, vault.Name); err != nil {
				log.Printf("[Scheduler] Напоминание для '%s' (копилка %d) не доставлено: %v",
					user.Email, vault.ID, err)
				continue
			}
			sent++
		}
	}
	if sent > 0 {
		log.Printf("[Scheduler] Отправлено %d напоминаний о стрике (%d копилок)", sent, len(vaults))
	}
}
