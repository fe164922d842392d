// Command sendmail dials an outbound account, upgrades to TLS when the
// server advertises STARTTLS, authenticates when the account has a user, and
// sends one message whose body is read from stdin.
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gopistolet/smtpclient/accounts"
	"github.com/gopistolet/smtpclient/smtp"
	"github.com/gopistolet/smtpclient/smtp/message"
	"github.com/gopistolet/smtpclient/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sendmail:", err)
		os.Exit(1)
	}
}

func run() error {
	accountsFile := flag.String("accounts", "accounts.json", "path to accounts directory JSON file")
	accountName := flag.String("account", "", "account name to send from")
	to := flag.String("to", "", "comma-separated recipient list")
	subject := flag.String("subject", "", "message subject")
	flag.Parse()

	if *accountName == "" || *to == "" {
		return fmt.Errorf("usage: sendmail -account NAME -to a@b.com[,c@d.com] [-subject S] < body.txt")
	}

	dir, err := accounts.Load(*accountsFile)
	if err != nil {
		return err
	}
	account, err := dir.Get(*accountName)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return fmt.Errorf("reading message body: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := transport.Dial(ctx, account.Addr())
	if err != nil {
		return fmt.Errorf("dial %s: %w", account.Addr(), err)
	}

	session := smtp.NewSession(conn)
	if _, err := session.Ready(); err != nil {
		return fmt.Errorf("greeting: %w", err)
	}

	ehlo, err := session.Ehlo(account.Host)
	if err != nil {
		return fmt.Errorf("ehlo: %w", err)
	}

	if ehlo.Supports(smtp.Extension{Kind: smtp.ExtStartTLS}) {
		if err := session.StartTLS(); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
		stream, buf := session.IntoInner()
		rawConn, ok := stream.(*transport.Conn)
		if !ok {
			return fmt.Errorf("starttls: stream is not a *transport.Conn")
		}
		tlsConn, err := transport.UpgradeTLS(rawConn.Conn, &tls.Config{ServerName: account.Host})
		if err != nil {
			return fmt.Errorf("tls handshake: %w", err)
		}
		session = smtp.NewSessionWithBuffer(tlsConn, buf)
		if _, err := session.Ehlo(account.Host); err != nil {
			return fmt.Errorf("post-tls ehlo: %w", err)
		}
	}

	if account.User != "" {
		if err := session.Auth(account.User, account.Password); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	recipients := strings.Split(*to, ",")
	for i, r := range recipients {
		recipients[i] = strings.TrimSpace(r)
	}

	msg := message.New(message.Now(), account.From, message.GenerateMessageID(account.Host)).
		WithTo(*to).
		WithSubject(*subject).
		WithBody(string(body))

	if err := session.SendMessage(msg, account.From, recipients); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	return session.Quit()
}
