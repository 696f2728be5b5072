// Command ops is the offline maintenance tool: database-aware backups,
// restores, restore drills, and a manual reminder sweep.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tanushreec24/Streaker/internal/config"
	"github.com/tanushreec24/Streaker/internal/ops"
	"github.com/tanushreec24/Streaker/internal/reminder"
	"github.com/tanushreec24/Streaker/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "backup":
		if err := cmdBackup(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "backup failed:", err)
			os.Exit(1)
		}
	case "restore":
		if err := cmdRestore(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "restore failed:", err)
			os.Exit(1)
		}
	case "drill":
		if err := cmdDrill(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "drill failed:", err)
			os.Exit(1)
		}
	case "remind":
		if err := cmdRemind(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "remind failed:", err)
			os.Exit(1)
		}
	default:
		printUsage()
		os.Exit(2)
	}
}

// cmdBackup snapshots the live database with VACUUM INTO, then archives the
// data directory (snapshot included) so the tarball never contains a database
// caught mid-write.
func cmdBackup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "data", "path to data directory")
	dbPath := fs.String("db", "", "database path (defaults to <data-dir>/streaker.db)")
	out := fs.String("out", "", "output archive path (.tar.gz)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dbPath == "" {
		*dbPath = filepath.Join(*dataDir, "streaker.db")
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	if *out == "" {
		*out = filepath.Join("backups", "streaker-"+ts+".tar.gz")
	}

	snapPath := filepath.Join(*dataDir, "snapshots", "streaker-"+ts+".db")
	if _, err := os.Stat(*dbPath); err == nil {
		if err := ops.SnapshotDatabase(*dbPath, snapPath); err != nil {
			return err
		}
		defer os.Remove(snapPath)
	}

	if err := ops.BackupDataDir(*dataDir, *out); err != nil {
		return err
	}
	fmt.Println(*out)
	return nil
}

func cmdRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	archive := fs.String("archive", "", "input backup archive (.tar.gz)")
	target := fs.String("target-dir", "data-restored", "restore target directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archive == "" {
		return fmt.Errorf("archive is required")
	}
	return ops.RestoreDataDir(*archive, *target)
}

// cmdDrill proves a backup is restorable: archive, restore, compare digests.
func cmdDrill(args []string) error {
	fs := flag.NewFlagSet("drill", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "data", "path to data directory")
	workDir := fs.String("work-dir", os.TempDir(), "temporary workspace for drill artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.MkdirAll(*workDir, 0o755); err != nil {
		return err
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	archive := filepath.Join(*workDir, "streaker-drill-"+ts+".tar.gz")
	restoreDir := filepath.Join(*workDir, "streaker-drill-restore-"+ts)

	if err := ops.BackupDataDir(*dataDir, archive); err != nil {
		return err
	}
	if err := ops.RestoreDataDir(archive, restoreDir); err != nil {
		return err
	}

	srcDigest, err := dirDigest(*dataDir)
	if err != nil {
		return err
	}
	restoreDigest, err := dirDigest(restoreDir)
	if err != nil {
		return err
	}
	if srcDigest != restoreDigest {
		return fmt.Errorf("digest mismatch after restore: src=%s restored=%s", srcDigest, restoreDigest)
	}

	fmt.Println("backup:", archive)
	fmt.Println("restored:", restoreDir)
	fmt.Println("digest:", srcDigest)
	return nil
}

// cmdRemind runs one reminder sweep against the configured database,
// delivering through SMTP when configured and the log otherwise.
func cmdRemind(args []string) error {
	fs := flag.NewFlagSet("remind", flag.ContinueOnError)
	configPath := fs.String("config", "streaker.yaml", "path to config file")
	dryRun := fs.Bool("dry-run", false, "log digests instead of sending mail")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	var sender reminder.Sender = &reminder.LogSender{Logger: log.Default()}
	if !*dryRun && cfg.SMTP.Addr != "" {
		sender = &reminder.SMTPSender{
			Addr:     cfg.SMTP.Addr,
			From:     cfg.SMTP.From,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		}
	}

	svc := reminder.NewService(reminder.NewSQLiteRepo(db), sender, log.Default(), reminder.Options{
		Window: time.Duration(cfg.Reminder.WindowMinutes) * time.Minute,
	})
	sent, err := svc.RunOnce(time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("sent %d digest(s)\n", sent)
	return nil
}

func dirDigest(root string) (string, error) {
	root = filepath.Clean(root)
	entries := []string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(entries)

	h := sha256.New()
	for _, rel := range entries {
		f, err := os.Open(filepath.Join(root, rel))
		if err != nil {
			return "", err
		}
		if _, err := io.WriteString(h, rel+"\n"); err != nil {
			_ = f.Close()
			return "", err
		}
		if _, err := io.Copy(h, f); err != nil {
			_ = f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: ops <command> [flags]

commands:
  backup   snapshot the database and archive the data directory
  restore  unpack a backup archive into a target directory
  drill    backup, restore, and verify digests end to end
  remind   run one reminder sweep now`)
}
