package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errNotLoggedIn = errors.New("not logged in")

func (a *App) report(err error) error {
	printlnFn(common.Message(err))
	return err
}

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		printlnFn("Please log in first")
		return errNotLoggedIn
	}
	return nil
}

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

// Register prompts for username, password and an optional email and creates
// the account.
func (a *App) Register(ctx context.Context) error {
	userName, err := a.ask("Enter username")
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	email, err := a.ask("Enter email (optional)")
	if err != nil {
		return err
	}

	if _, err := a.users.Register(ctx, userName, string(password), optional(email)); err != nil {
		return a.report(err)
	}

	printlnFn(common.MsgRegistered)
	return nil
}

// Login prompts for credentials and keeps the identity for later commands.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		printlnFn("Already logged in as", a.identity.UserName)
		return nil
	}

	userName, err := a.ask("Enter username")
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	identity, err := a.users.Login(ctx, userName, string(password))
	if err != nil {
		return a.report(err)
	}

	a.identity = identity
	printlnFn(common.MsgLoggedIn)
	return nil
}

// Logout forgets the identity.
func (a *App) Logout(ctx context.Context) error {
	a.identity = nil
	printlnFn(common.MsgLoggedOut)
	return nil
}

// ChangePassword asks for the current and the new password.
func (a *App) ChangePassword(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	oldPassword, err := getPassword("Current password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPassword)

	newPassword, err := getPassword("New password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	if err := a.users.ChangePassword(ctx, a.identity, string(oldPassword), string(newPassword)); err != nil {
		return a.report(err)
	}

	printlnFn(common.MsgPasswordChanged)
	return nil
}

func (a *App) askContact() (nome, telefone string, email *string, err error) {
	if nome, err = a.ask("Name"); err != nil {
		return
	}
	if telefone, err = a.ask("Phone"); err != nil {
		return
	}
	var e string
	if e, err = a.ask("Email (optional)"); err != nil {
		return
	}
	return nome, telefone, optional(e), nil
}

func (a *App) Add(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	nome, telefone, email, err := a.askContact()
	if err != nil {
		return err
	}

	if _, err := a.contacts.Add(ctx, a.identity.ID, nome, telefone, email); err != nil {
		return a.report(err)
	}

	printlnFn(common.MsgContactAdded)
	return nil
}

func (a *App) List(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	contacts, err := a.contacts.List(ctx, a.identity.ID)
	if err != nil {
		return a.report(err)
	}

	printContacts(contacts)
	return nil
}

// Search prints contacts matching term, prompting for it when empty.
func (a *App) Search(ctx context.Context, term string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	if term == "" {
		var err error
		if term, err = a.ask("Search for"); err != nil {
			return err
		}
	}

	contacts, err := a.contacts.Search(ctx, a.identity.ID, term)
	if err != nil {
		return a.report(err)
	}

	printContacts(contacts)
	return nil
}

// Update rewrites the contact with the given phone number.
func (a *App) Update(ctx context.Context, phone string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	if phone == "" {
		var err error
		if phone, err = a.ask("Phone of the contact to update"); err != nil {
			return err
		}
	}

	nome, telefone, email, err := a.askContact()
	if err != nil {
		return err
	}

	if _, err := a.contacts.Update(ctx, a.identity.ID, phone, nome, telefone, email); err != nil {
		return a.report(err)
	}

	printlnFn(common.MsgContactUpdated)
	return nil
}

// Remove deletes the contact with the given phone number.
func (a *App) Remove(ctx context.Context, phone string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	if phone == "" {
		var err error
		if phone, err = a.ask("Phone of the contact to remove"); err != nil {
			return err
		}
	}

	if err := a.contacts.Remove(ctx, a.identity.ID, phone); err != nil {
		return a.report(err)
	}

	printlnFn(common.MsgContactRemoved)
	return nil
}

func formatContact(c *models.Contact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-30s %-20s", c.Nome, c.Telefone)
	if c.Email != nil {
		b.WriteString(" " + *c.Email)
	}
	return strings.TrimRight(b.String(), " ")
}

func printContacts(contacts []*models.Contact) {
	if len(contacts) == 0 {
		printlnFn("No contacts found")
		return
	}
	for _, c := range contacts {
		printlnFn(formatContact(c))
	}
}
