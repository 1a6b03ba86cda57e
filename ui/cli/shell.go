// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/toeirei/passmaster/internal/i18n"
	"github.com/toeirei/passmaster/internal/session"
)

var (
	menuTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("81"))
	menuBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("81")).
			Padding(0, 1)
	errorTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// menuItems are the message IDs of the shell menu, in order.
var menuItems = []string{
	"shell.menu.add",
	"shell.menu.view",
	"shell.menu.update",
	"shell.menu.delete",
	"shell.menu.list",
	"shell.menu.search",
	"shell.menu.lock",
	"shell.menu.exit",
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive menu",
		Long: `Opens a numbered menu for adding, viewing, updating, deleting, listing and
searching credentials. Locking wipes the session key; the next action asks
for the master passphrase again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, true, a.shell)
		},
	}
}

func renderMenu() string {
	lines := []string{menuTitleStyle.Render(i18n.T("shell.title"))}
	for i, id := range menuItems {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, i18n.T(id)))
	}
	return menuBoxStyle.Render(strings.Join(lines, "\n"))
}

func (a *app) shell(ctx context.Context) error {
	for {
		fmt.Fprintln(a.out, renderMenu())
		choice, err := a.prompt.Line(i18n.T("shell.choice", len(menuItems)))
		if err != nil {
			return err
		}
		switch choice {
		case "7":
			a.session.Lock()
			fmt.Fprintln(a.out, i18n.T("session.locked"))
			continue
		case "8":
			fmt.Fprintln(a.out, i18n.T("shell.goodbye"))
			return nil
		case "1", "2", "3", "4", "5", "6":
		default:
			fmt.Fprintln(a.out, i18n.T("shell.invalid", len(menuItems)))
			continue
		}

		if a.session.State() == session.Locked {
			fmt.Fprintln(a.out, i18n.T("shell.locked"))
			if err := a.unlock(ctx); err != nil {
				return err
			}
		}
		if err := a.shellAction(ctx, choice); err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintln(a.out, errorTextStyle.Render(describe(err)))
		}
		fmt.Fprintln(a.out)
	}
}

func (a *app) shellAction(ctx context.Context, choice string) error {
	readService := func() (string, error) {
		return a.prompt.Line(i18n.T("prompt.service"))
	}

	switch choice {
	case "1":
		service, err := readService()
		if err != nil {
			return err
		}
		return a.addCredential(ctx, service, false)
	case "2":
		service, err := readService()
		if err != nil {
			return err
		}
		return a.showCredential(ctx, service, true, false)
	case "3":
		service, err := readService()
		if err != nil {
			return err
		}
		return a.updateCredential(ctx, service, false)
	case "4":
		service, err := readService()
		if err != nil {
			return err
		}
		return a.deleteCredential(ctx, service, false)
	case "5":
		return a.listCredentials()
	case "6":
		query, err := a.prompt.Line(i18n.T("prompt.search"))
		if err != nil {
			return err
		}
		return a.searchCredentials(query)
	}
	return nil
}
