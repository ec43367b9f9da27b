package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/models"

	"gorm.io/gorm"
)

// restoreTables lists what a restore replaces, parents before children.
// Users, held carts and the schema version are left alone.
var restoreTables = []struct {
	model    interface{}
	required bool
}{
	{&models.Product{}, true},
	{&models.Customer{}, true},
	{&models.Transaction{}, true},
	{&models.RepairTicket{}, true},
	{&models.StockMovement{}, false},
	{&models.PointsMovement{}, false},
}

// BackupFile describes one file in the backup directory.
type BackupFile struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Backup writes a consistent copy of a SQLite store into destDir and returns its path.
func Backup(db *gorm.DB, destDir, deviceID string) (string, error) {
	if db.Dialector.Name() != "sqlite" {
		return "", fmt.Errorf("backup is only supported for sqlite (use mysqldump for %s)", db.Dialector.Name())
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(time.Now().UTC().Format(time.RFC3339Nano))
	dest := filepath.Join(destDir, fmt.Sprintf("POS_Backup_%s_%s.db", deviceID, stamp))

	if err := db.Exec("VACUUM INTO ?", dest).Error; err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return dest, nil
}

// FactoryReset wipes sales, ledgers, repairs, carts, customers and products in one
// unit of work. Users and the schema version survive.
func FactoryReset(db *gorm.DB) error {
	wipe := []interface{}{
		&models.StockMovement{},
		&models.PointsMovement{},
		&models.Transaction{},
		&models.HeldCart{},
		&models.RepairTicket{},
		&models.Customer{},
		&models.Product{},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range wipe {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
				return err
			}
		}
		if tx.Dialector.Name() == "sqlite" && tx.Migrator().HasTable("sqlite_sequence") {
			// Reset auto-increment IDs
			if err := tx.Exec("DELETE FROM sqlite_sequence WHERE name <> ?", "schema_migrations").Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListBackups returns the backups in dir, newest first. A missing dir is empty.
func ListBackups(dir string) ([]BackupFile, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []BackupFile{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := []BackupFile{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "POS_Backup_") || filepath.Ext(e.Name()) != ".db" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, BackupFile{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ModTime.After(files[j].ModTime) })
	return files, nil
}

// Restore replaces sales, stock, customers and repairs with the contents of
// the backup at path. The copy runs in one transaction on a single connection
// with the backup attached; on any error the live data is untouched.
// Only columns present in both stores are copied.
func Restore(db *gorm.DB, path string) error {
	if db.Dialector.Name() != "sqlite" {
		return fmt.Errorf("restore is only supported for sqlite (got %s)", db.Dialector.Name())
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.NotFound("backup %s", filepath.Base(path))
		}
		return err
	}

	return db.Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("ATTACH DATABASE ? AS backup", path).Error; err != nil {
			return fmt.Errorf("attach %s: %w", path, err)
		}
		defer conn.Exec("DETACH DATABASE backup")

		return conn.Transaction(func(tx *gorm.DB) error {
			tables := make([]string, 0, len(restoreTables))
			for _, t := range restoreTables {
				name, err := tableName(tx, t.model)
				if err != nil {
					return err
				}
				var found int64
				if err := tx.Raw("SELECT COUNT(*) FROM backup.sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&found).Error; err != nil {
					return err
				}
				if found == 0 {
					if t.required {
						return apperr.Validation("%s is not a POS backup (no %s table)", filepath.Base(path), name)
					}
					continue
				}
				tables = append(tables, name)
			}

			// children first
			for i := len(tables) - 1; i >= 0; i-- {
				if err := tx.Exec("DELETE FROM main." + tables[i]).Error; err != nil {
					return err
				}
			}
			if tx.Migrator().HasTable("sqlite_sequence") {
				if err := tx.Exec("DELETE FROM main.sqlite_sequence WHERE name IN ?", tables).Error; err != nil {
					return err
				}
			}

			for _, name := range tables {
				cols, err := sharedColumns(tx, name)
				if err != nil {
					return err
				}
				list := `"` + strings.Join(cols, `", "`) + `"`
				insert := fmt.Sprintf("INSERT INTO main.%s (%s) SELECT %s FROM backup.%s", name, list, list, name)
				if err := tx.Exec(insert).Error; err != nil {
					return fmt.Errorf("restore %s: %w", name, err)
				}
			}
			return nil
		})
	})
}

func tableName(db *gorm.DB, model interface{}) (string, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return "", err
	}
	return stmt.Schema.Table, nil
}

// sharedColumns returns the columns of table that exist in both main and backup, in main's order.
func sharedColumns(tx *gorm.DB, table string) ([]string, error) {
	var live, saved []string
	if err := tx.Raw("SELECT name FROM pragma_table_info(?, 'main')", table).Scan(&live).Error; err != nil {
		return nil, err
	}
	if err := tx.Raw("SELECT name FROM pragma_table_info(?, 'backup')", table).Scan(&saved).Error; err != nil {
		return nil, err
	}

	inBackup := make(map[string]bool, len(saved))
	for _, c := range saved {
		inBackup[c] = true
	}
	cols := make([]string, 0, len(live))
	for _, c := range live {
		if inBackup[c] {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil, apperr.Validation("backup table %s has no usable columns", table)
	}
	return cols, nil
}
