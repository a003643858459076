// Package mail wraps the IMAP protocol subset described in spec.md §6:
// connect/TLS, authenticate, capability probe, SELECT with UIDVALIDITY,
// UID SEARCH with SINCE and an open-ended UID range, UID FETCH (RFC822),
// push wait (IDLE) and logout.
package mail

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Endpoint describes one mailbox connection target.
type Endpoint struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
}

// Client wraps an authenticated IMAP session bound to one selected folder.
type Client struct {
	raw         *client.Client
	IdleCapable bool
}

// Connect dials, authenticates and probes IDLE support. Capability must be
// probed post-auth since some servers only advertise it then (§4.1 step 2).
func Connect(ep Endpoint, timeout time.Duration) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", ep.Host, ep.Port)

	var raw *client.Client
	var err error
	if ep.TLS {
		raw, err = client.DialTLS(addr, &tls.Config{ServerName: ep.Host})
	} else {
		raw, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	raw.Timeout = timeout

	if !ep.TLS {
		if ok, _ := raw.SupportStartTLS(); ok {
			if err := raw.StartTLS(&tls.Config{ServerName: ep.Host}); err != nil {
				raw.Close()
				return nil, fmt.Errorf("failed to start tls: %w", err)
			}
		}
	}

	if err := raw.Login(ep.Username, ep.Password); err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	idleCapable, err := raw.SupportsIdle()
	if err != nil {
		idleCapable = false
	}

	return &Client{raw: raw, IdleCapable: idleCapable}, nil
}

// SelectedFolder is the result of SELECT: the server-reported UIDVALIDITY
// and UIDNEXT, the UID the server will assign to the next message.
type SelectedFolder struct {
	UIDValidity uint32
	UIDNext     uint32
}

// Select opens a folder read-write and returns its UIDVALIDITY (§4.1 step 3).
func (c *Client) Select(folder string) (*SelectedFolder, error) {
	status, err := c.raw.Select(folder, false)
	if err != nil {
		return nil, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}
	return &SelectedFolder{UIDValidity: status.UidValidity, UIDNext: status.UidNext}, nil
}

// SearchSince performs a UID SEARCH for messages with UID greater than
// afterUID, received since the given time (§4.1 step 4). An afterUID of
// zero searches the whole folder.
func (c *Client) SearchSince(afterUID uint32, since time.Time) ([]uint32, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(afterUID+1, 0) // 0 means "no upper bound"

	criteria := imap.NewSearchCriteria()
	criteria.Uid = seqSet
	criteria.Since = since

	uids, err := c.raw.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search folder: %w", err)
	}
	return uids, nil
}

// FetchedMessage is one fetched message's raw RFC822 content and UID.
type FetchedMessage struct {
	UID    uint32
	RFC822 []byte
}

// FetchRFC822 fetches the full message body for each UID (§4.1 step 5).
func (c *Client) FetchRFC822(uid uint32) (*FetchedMessage, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.raw.UidFetch(seqSet, items, messages)
	}()

	var result *FetchedMessage
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		buf := make([]byte, 0, 4096)
		chunk := make([]byte, 4096)
		for {
			n, err := body.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
			}
			if err != nil {
				break
			}
		}
		result = &FetchedMessage{UID: uid, RFC822: buf}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch uid %d: %w", uid, err)
	}
	if result == nil {
		return nil, fmt.Errorf("uid %d: no body section returned", uid)
	}
	return result, nil
}

// Updates exposes the underlying client's unsolicited-update channel, for
// the watcher's IDLE push-wait phase to watch for new-message notifications.
func (c *Client) Updates() chan client.Update {
	updates := make(chan client.Update, 8)
	c.raw.Updates = updates
	return updates
}

// Raw exposes the underlying emersion/go-imap client, for go-imap-idle's
// idle.NewClient constructor which needs the concrete type.
func (c *Client) Raw() *client.Client {
	return c.raw
}

// Logout releases the connection (§6: "Connection must support logout").
func (c *Client) Logout() error {
	return c.raw.Logout()
}
