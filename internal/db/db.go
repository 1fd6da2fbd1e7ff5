package db

import (
	"fmt"
	"strings"
	"time"

	"parallel/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 根据 DATABASE_URL 的 scheme 选择驱动: postgres:// 或 sqlite://
func Open(databaseURL string) (*gorm.DB, error) {
	dialector, err := dialectorFor(databaseURL)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		// 唯一索引冲突翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if conn.Dialector.Name() == "sqlite" {
		// SQLite 只允许单写; 内存库每个连接都是独立的库
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	logrus.WithField("driver", conn.Dialector.Name()).Info("Database connection established")
	return conn, nil
}

func dialectorFor(databaseURL string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.Open(databaseURL), nil
	case strings.HasPrefix(databaseURL, "host="):
		// key=value DSN
		return postgres.Open(databaseURL), nil
	case strings.HasPrefix(databaseURL, "sqlite:///"):
		return sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite:///")), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://")), nil
	case databaseURL == ":memory:":
		return sqlite.Open(databaseURL), nil
	}
	return nil, fmt.Errorf("unsupported DATABASE_URL %q", databaseURL)
}

// Migrate 建表并补齐缺失列，同时清理旧版本留下的数据问题
func Migrate(conn *gorm.DB) error {
	// 旧版本靠先查后写防重，可能留下重复行; 建唯一索引前先去重
	if err := dedupe(conn, &models.Vote{}, "votes", "user_id, decision_id"); err != nil {
		return err
	}
	if err := dedupe(conn, &models.Follow{}, "follows", "follower_id, following_id"); err != nil {
		return err
	}

	err := conn.AutoMigrate(
		&models.User{},
		&models.Decision{},
		&models.Vote{},
		&models.Comment{},
		&models.Follow{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := migrateLegacyChoices(conn); err != nil {
		return err
	}
	logrus.Info("Database migration completed")
	return nil
}

func dedupe(conn *gorm.DB, model interface{}, table, key string) error {
	if !conn.Migrator().HasTable(model) {
		return nil
	}
	res := conn.Exec(fmt.Sprintf(
		"DELETE FROM %s WHERE id NOT IN (SELECT MIN(id) FROM %s GROUP BY %s)",
		table, table, key,
	))
	if res.Error != nil {
		return fmt.Errorf("failed to dedupe %s: %w", table, res.Error)
	}
	if res.RowsAffected > 0 {
		logrus.WithFields(logrus.Fields{"table": table, "rows": res.RowsAffected}).Warn("Removed duplicate rows")
	}
	return nil
}

// migrateLegacyChoices 把 do_it / dont_do_it 改写为 option_a / option_b，并给旧决定补上选项标签
func migrateLegacyChoices(conn *gorm.DB) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		renames := map[string]string{
			models.LegacyChoiceDoIt:     models.ChoiceOptionA,
			models.LegacyChoiceDontDoIt: models.ChoiceOptionB,
		}
		for from, to := range renames {
			res := tx.Model(&models.Vote{}).Where("choice = ?", from).Update("choice", to)
			if res.Error != nil {
				return fmt.Errorf("failed to migrate vote choices: %w", res.Error)
			}
			if res.RowsAffected > 0 {
				logrus.WithFields(logrus.Fields{"from": from, "to": to, "rows": res.RowsAffected}).Info("Migrated legacy vote choices")
			}
		}

		if err := tx.Model(&models.Decision{}).
			Where("option_a IS NULL OR option_a = ''").
			Update("option_a", models.LegacyOptionALabel).Error; err != nil {
			return fmt.Errorf("failed to backfill option_a: %w", err)
		}
		if err := tx.Model(&models.Decision{}).
			Where("option_b IS NULL OR option_b = ''").
			Update("option_b", models.LegacyOptionBLabel).Error; err != nil {
			return fmt.Errorf("failed to backfill option_b: %w", err)
		}
		return nil
	})
}
