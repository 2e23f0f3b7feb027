package approval

import (
	"bufio"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/securebank/bankd/internal/bank"
)

// The spool holds the verification queue across restarts: one plaintext
// pipe-delimited line per request. The operation queue is never spooled;
// its waiters do not survive a restart either.

func (b *Broker) loadSpool() {
	f, err := os.Open(b.spoolPath)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		log.Printf("approval: cannot open spool %s: %v", b.spoolPath, err)
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		req, err := bank.UnmarshalApprovalRequest(line)
		if err != nil {
			log.Printf("approval: skipping malformed spool line: %v", err)
			continue
		}
		b.verifications = append(b.verifications, req)
	}
	if err := sc.Err(); err != nil {
		log.Printf("approval: spool read aborted: %v", err)
	}

	log.Printf("approval: loaded %d verification requests from spool", len(b.verifications))
}

func (b *Broker) saveSpoolLocked() {
	if dir := filepath.Dir(b.spoolPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("approval: cannot create spool directory: %v", err)
			return
		}
	}

	var sb strings.Builder
	for _, r := range b.verifications {
		sb.WriteString(bank.MarshalApprovalRequest(r))
		sb.WriteByte('\n')
	}

	if err := os.WriteFile(b.spoolPath, []byte(sb.String()), 0o644); err != nil {
		log.Printf("approval: cannot write spool %s: %v", b.spoolPath, err)
	}
}
