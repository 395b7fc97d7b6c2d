package ingestion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/config"
)

type imapClient interface {
	Login(username, password string) commandWaiter
	Logout() commandWaiter
	Close() error
	Select(mailbox string, options *imap.SelectOptions) selectWaiter
	UIDSearch(criteria *imap.SearchCriteria, options *imap.SearchOptions) searchWaiter
	Fetch(numSet imap.NumSet, options *imap.FetchOptions) fetchWaiter
	Store(numSet imap.NumSet, store *imap.StoreFlags, options *imap.StoreOptions) fetchWaiter
	UIDExpunge(uids imap.UIDSet) expungeWaiter
}

type commandWaiter interface{ Wait() error }
type selectWaiter interface {
	Wait() (*imap.SelectData, error)
}
type searchWaiter interface {
	Wait() (*imap.SearchData, error)
}
type fetchWaiter interface {
	Collect() ([]*imapclient.FetchMessageBuffer, error)
	Close() error
}
type expungeWaiter interface{ Close() error }

// IMAPMailbox reads unseen messages from one IMAP folder.
type IMAPMailbox struct {
	cfg         config.MailConfig
	dialTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
	newClient   func(config.MailConfig) (imapClient, error)

	mu      sync.Mutex
	session imapClient
}

// IMAPOption customizes mailbox behavior.
type IMAPOption func(*IMAPMailbox)

// NewIMAPMailbox returns a mailbox for cfg. No connection is made until FetchUnread.
func NewIMAPMailbox(cfg config.MailConfig, opts ...IMAPOption) *IMAPMailbox {
	m := &IMAPMailbox{
		cfg:         cfg,
		dialTimeout: 10 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      zap.NewNop(),
	}
	m.newClient = m.defaultClientFactory
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithIMAPLogger overrides the logger used for mailbox diagnostics.
func WithIMAPLogger(logger *zap.Logger) IMAPOption {
	return func(m *IMAPMailbox) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIMAPDialTimeout bounds the TCP dial. Commands after login are not bounded.
func WithIMAPDialTimeout(timeout time.Duration) IMAPOption {
	return func(m *IMAPMailbox) {
		if timeout > 0 {
			m.dialTimeout = timeout
		}
	}
}

// WithIMAPClock overrides the wall clock, primarily for tests.
func WithIMAPClock(now func() time.Time) IMAPOption {
	return func(m *IMAPMailbox) {
		if now != nil {
			m.now = now
		}
	}
}

func withIMAPClientFactory(factory func(config.MailConfig) (imapClient, error)) IMAPOption {
	return func(m *IMAPMailbox) {
		if factory != nil {
			m.newClient = factory
		}
	}
}

// FetchUnread logs in, selects the folder and returns every message without the \Seen flag.
// Bodies are fetched with PEEK so they stay unread until MarkProcessed.
func (m *IMAPMailbox) FetchUnread(ctx context.Context) ([]RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, err := m.ensureSession()
	if err != nil {
		return nil, err
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	buffers, err := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{{Peek: true}},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	messages := make([]RawMessage, 0, len(buffers))
	for _, buf := range buffers {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		body := buf.FindBodySection(&imap.FetchItemBodySection{})
		if body == nil {
			m.logger.Warn("imap message without body", zap.Uint32("uid", uint32(buf.UID)))
			continue
		}
		received := buf.InternalDate
		if received.IsZero() {
			received = m.now()
		}
		messages = append(messages, RawMessage{
			UID:        uint32(buf.UID),
			Raw:        append([]byte(nil), body...),
			ReceivedAt: received,
		})
	}
	return messages, nil
}

// MarkProcessed flags the message \Seen, or deletes it when DeleteAfterFetch is set.
func (m *IMAPMailbox) MarkProcessed(_ context.Context, msg RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, err := m.ensureSession()
	if err != nil {
		return err
	}
	uidSet := imap.UIDSetNum(imap.UID(msg.UID))
	flags := []imap.Flag{imap.FlagSeen}
	if m.cfg.DeleteAfterFetch {
		flags = append(flags, imap.FlagDeleted)
	}
	store := &imap.StoreFlags{Op: imap.StoreFlagsAdd, Silent: true, Flags: flags}
	if err := client.Store(uidSet, store, nil).Close(); err != nil {
		return fmt.Errorf("imap store flags for %d: %w", msg.UID, err)
	}
	if m.cfg.DeleteAfterFetch {
		if err := client.UIDExpunge(uidSet).Close(); err != nil {
			return fmt.Errorf("imap expunge %d: %w", msg.UID, err)
		}
	}
	return nil
}

// Close logs out and drops the session. It is safe to call without an open session.
func (m *IMAPMailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	client := m.session
	m.session = nil
	logoutErr := client.Logout().Wait()
	if err := client.Close(); err != nil {
		m.logger.Debug("imap close error", zap.Error(err))
	}
	if logoutErr != nil {
		return fmt.Errorf("imap logout: %w", logoutErr)
	}
	return nil
}

func (m *IMAPMailbox) ensureSession() (imapClient, error) {
	if m.session != nil {
		return m.session, nil
	}
	if m.cfg.Username == "" || m.cfg.Password == "" {
		return nil, errors.New("imap mailbox missing credentials")
	}
	client, err := m.newClient(m.cfg)
	if err != nil {
		return nil, fmt.Errorf("imap connect: %w", err)
	}
	if err := client.Login(m.cfg.Username, m.cfg.Password).Wait(); err != nil {
		m.safeClose(client)
		return nil, fmt.Errorf("imap auth: %w", err)
	}
	folder := m.cfg.Folder
	if folder == "" {
		folder = "INBOX"
	}
	if _, err := client.Select(folder, nil).Wait(); err != nil {
		m.safeClose(client)
		return nil, fmt.Errorf("imap select %s: %w", folder, err)
	}
	m.session = client
	return client, nil
}

func (m *IMAPMailbox) safeClose(client imapClient) {
	if err := client.Close(); err != nil {
		m.logger.Debug("imap close error", zap.Error(err))
	}
}

func (m *IMAPMailbox) defaultClientFactory(cfg config.MailConfig) (imapClient, error) {
	if cfg.Host == "" {
		return nil, errors.New("imap mailbox missing host")
	}
	port := cfg.Port
	if port == 0 {
		if cfg.UseTLS {
			port = 993
		} else {
			port = 143
		}
	}
	opts := &imapclient.Options{Dialer: &net.Dialer{Timeout: m.dialTimeout}}
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", port))
	var (
		client *imapclient.Client
		err    error
	)
	if cfg.UseTLS {
		client, err = imapclient.DialTLS(addr, opts)
	} else {
		client, err = imapclient.DialInsecure(addr, opts)
	}
	if err != nil {
		return nil, err
	}
	return &imapClientWrapper{Client: client}, nil
}

type imapClientWrapper struct{ *imapclient.Client }

func (w *imapClientWrapper) Login(username, password string) commandWaiter {
	return w.Client.Login(username, password)
}
func (w *imapClientWrapper) Logout() commandWaiter { return w.Client.Logout() }
func (w *imapClientWrapper) Select(mailbox string, options *imap.SelectOptions) selectWaiter {
	return w.Client.Select(mailbox, options)
}
func (w *imapClientWrapper) UIDSearch(criteria *imap.SearchCriteria, options *imap.SearchOptions) searchWaiter {
	return w.Client.UIDSearch(criteria, options)
}
func (w *imapClientWrapper) Fetch(numSet imap.NumSet, options *imap.FetchOptions) fetchWaiter {
	return w.Client.Fetch(numSet, options)
}
func (w *imapClientWrapper) Store(numSet imap.NumSet, store *imap.StoreFlags, options *imap.StoreOptions) fetchWaiter {
	return w.Client.Store(numSet, store, options)
}
func (w *imapClientWrapper) UIDExpunge(uids imap.UIDSet) expungeWaiter {
	return w.Client.UIDExpunge(uids)
}
