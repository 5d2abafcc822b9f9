// Command inspect dumps the chat store as a table, for poking at a database
// left behind by a running or crashed server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

type storedMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	MediaPath string    `json:"media_path"`
	MediaKind string    `json:"media_kind"`
	At        time.Time `json:"at"`
	Read      bool      `json:"read"`
}

type storedConversation struct {
	ID         string `json:"id"`
	Creator    string `json:"creator"`
	Subscriber string `json:"subscriber"`
	Active     bool   `json:"active"`
}

func main() {
	dbPath := flag.String("db", "/tmp/fanshub-chat", "Path to badger DB")
	// "msg:" by default; pass "conv:" to list conversations instead
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Sender", "Detail", "Read"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// The pair index holds bare uuids, nothing to decode.
			if strings.HasPrefix(key, "convpair:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append(toRow(key, v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func toRow(key string, value []byte) []string {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var m storedMessage
		if err := json.Unmarshal(value, &m); err != nil {
			return []string{shortKey(key), "?", "", "", fmt.Sprintf("unmarshal: %v", err), ""}
		}
		rowType := "TEXT"
		detail := m.Body
		if m.MediaPath != "" {
			rowType = strings.ToUpper(m.MediaKind)
			detail = m.MediaPath
		}
		return []string{shortKey(key), rowType, m.At.Format("15:04:05"), m.Sender, detail, fmt.Sprintf("%t", m.Read)}

	case strings.HasPrefix(key, "conv:"):
		var c storedConversation
		if err := json.Unmarshal(value, &c); err != nil {
			return []string{shortKey(key), "?", "", "", fmt.Sprintf("unmarshal: %v", err), ""}
		}
		return []string{shortKey(key), "CONV", "", c.Creator,
			fmt.Sprintf("with %s (active=%t)", c.Subscriber, c.Active), ""}

	default:
		return []string{shortKey(key), "?", "", "", string(value), ""}
	}
}

// shortKey keeps the first 8 characters of each uuid segment for readability.
func shortKey(key string) string {
	parts := strings.Split(key, ":")
	for i, p := range parts {
		if len(p) == 36 {
			parts[i] = p[:8]
		}
	}
	return strings.Join(parts, ":")
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)
	return badger.Open(opts)
}
