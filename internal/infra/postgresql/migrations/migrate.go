package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/lealta/campaign-engine/internal/repository"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_campaigns",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.CampaignModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_campaigns_tenant_created ON campaigns (tenant_id, created_at DESC)`,
					`CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns (status) WHERE status IN ('PROCESSING', 'PAUSED')`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.CampaignModel{})
			},
		},
		{
			ID: "000002_create_sending_accounts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.SendingAccountModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_sending_accounts_tenant ON sending_accounts (tenant_id)`,
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_sending_accounts_tenant_phone ON sending_accounts (tenant_id, phone_number)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.SendingAccountModel{})
			},
		},
		{
			ID: "000003_create_message_records",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.MessageRecordModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_message_records_campaign ON message_records (campaign_id)`,
					`CREATE INDEX IF NOT EXISTS idx_message_records_provider_id ON message_records (provider_message_id) WHERE provider_message_id IS NOT NULL`,
					`CREATE INDEX IF NOT EXISTS idx_message_records_tenant_phone ON message_records (tenant_id, phone_number)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.MessageRecordModel{})
			},
		},
		{
			ID: "000004_create_suppression_entries",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.SuppressionEntryModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_suppression_tenant_phone ON suppression_entries (tenant_id, phone_number)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.SuppressionEntryModel{})
			},
		},
		{
			ID: "000005_create_worker_heartbeats",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.WorkerHeartbeatModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.WorkerHeartbeatModel{})
			},
		},
		{
			ID: "000006_create_contacts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ContactModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_contacts_tenant_registered ON contacts (tenant_id, registered_at, id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ContactModel{})
			},
		},
		{
			ID: "000007_create_approved_templates",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ApprovedTemplateModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_approved_templates_tenant_ref ON approved_templates (tenant_id, ref)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ApprovedTemplateModel{})
			},
		},
	})

	return m.Migrate()
}
