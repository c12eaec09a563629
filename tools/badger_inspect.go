package main

import (
	"encoding/json"
	"fasolink-chat/infrastructure/storage"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	// Empty prefix lists everything except the sequence counters
	prefix := flag.String("prefix", "", "Prefix to scan (convo:, member:, msg:, read:, token:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Detail"})
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
			if strings.HasPrefix(key, "seq:") {
				continue
			}
			err := item.Value(func(v []byte) error {
				table.Append(describe(key, v))
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

// describe turns one stored entry into a table row. Undecodable values are shown raw.
func describe(key string, val []byte) []string {
	kind, _, _ := strings.Cut(key, ":")
	switch kind {
	case "convo":
		var c storage.DiskConversation
		if err := json.Unmarshal(val, &c); err != nil {
			return raw(key, kind, val)
		}
		return []string{key, "CONVERSATION", clock(c.CreatedAt),
			fmt.Sprintf("listing=%d participants=%v", c.ListingID, c.Participants)}
	case "msg":
		var m storage.DiskMessage
		if err := json.Unmarshal(val, &m); err != nil {
			return raw(key, kind, val)
		}
		return []string{key, "MESSAGE", clock(m.At), fmt.Sprintf("%s: %s", m.SenderDisplay, m.Content)}
	case "read":
		at, err := strconv.ParseInt(string(val), 10, 64)
		if err != nil {
			return raw(key, kind, val)
		}
		return []string{key, "READ", clock(at), ""}
	case "member":
		return []string{key, "MEMBER", "", ""}
	case "listing":
		return []string{key, "LISTING", "", ""}
	case "token":
		var t storage.DiskToken
		if err := json.Unmarshal(val, &t); err != nil {
			return raw(key, kind, val)
		}
		// Only the first characters, the key is a credential
		short := strings.TrimPrefix(key, "token:")
		if len(short) > 8 {
			short = short[:8]
		}
		return []string{"token:" + short + "…", "TOKEN", clock(t.CreatedAt), fmt.Sprintf("user=%d %s", t.UserID, t.Username)}
	default:
		return raw(key, kind, val)
	}
}

func raw(key, kind string, val []byte) []string {
	return []string{key, strings.ToUpper(kind), "", string(val)}
}

func clock(nanos int64) string {
	if nanos == 0 {
		return ""
	}
	return time.Unix(0, nanos).UTC().Format(time.DateTime)
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
