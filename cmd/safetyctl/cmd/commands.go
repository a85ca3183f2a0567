package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	client "github.com/oshokin/safeguardian/internal/service/client"
)

// errBadSwitch is returned for a switch value other than on or off.
var errBadSwitch = errors.New("expected on or off")

func newSOSCommand() *cobra.Command {
	sos := &cobra.Command{
		Use:   "sos",
		Short: "Trigger, cancel or inspect the SOS countdown.",
	}

	sos.AddCommand(
		&cobra.Command{
			Use:   "activate",
			Short: "Start the SOS countdown, retrying until the server answers.",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, s *client.Session, _ []string) error {
				return s.ActivateSOS(ctx)
			}),
		},
		&cobra.Command{
			Use:   "cancel",
			Short: "Cancel the SOS countdown before alerts are sent.",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, s *client.Session, _ []string) error {
				return s.CancelSOS(ctx)
			}),
		},
		&cobra.Command{
			Use:   "state",
			Short: "Print the SOS state.",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, s *client.Session, _ []string) error {
				return s.ShowState(ctx)
			}),
		},
	)

	return sos
}

func newContactsCommand() *cobra.Command {
	contacts := &cobra.Command{
		Use:   "contacts",
		Short: "Manage emergency contacts.",
	}

	var familyOnly bool

	list := &cobra.Command{
		Use:   "list",
		Short: "List contacts in directory order.",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *client.Session, _ []string) error {
			return s.ListContacts(ctx, familyOnly)
		}),
	}
	list.Flags().BoolVarP(&familyOnly, "family", "f", false, "list family members only")

	var draft contact.Draft

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a contact.",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *client.Session, _ []string) error {
			return s.AddContact(ctx, draft)
		}),
	}
	add.Flags().StringVar(&draft.Name, "name", "", "contact name")
	add.Flags().StringVar(&draft.Phone, "phone", "", "contact phone number")
	add.Flags().StringVar(&draft.Email, "email", "", "contact email")
	add.Flags().StringVar(&draft.Relationship, "relationship", "", `relationship, "Family" marks a family member`)

	contacts.AddCommand(list, add, newUpdateContactCommand(),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a contact. The primary contact cannot be deleted while others remain.",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, s *client.Session, args []string) error {
				return s.DeleteContact(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "primary <id>",
			Short: "Make a contact the primary contact.",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, s *client.Session, args []string) error {
				return s.SetPrimary(ctx, args[0])
			}),
		},
	)

	return contacts
}

func newUpdateContactCommand() *cobra.Command {
	var (
		name, phone, email, relationship string
		family                           bool
	)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a contact.",
		Args:  cobra.ExactArgs(1),
	}

	update.RunE = run(func(ctx context.Context, s *client.Session, args []string) error {
		var patch contact.Patch

		flags := update.Flags()
		if flags.Changed("name") {
			patch.Name = &name
		}

		if flags.Changed("phone") {
			patch.Phone = &phone
		}

		if flags.Changed("email") {
			patch.Email = &email
		}

		if flags.Changed("relationship") {
			patch.Relationship = &relationship
		}

		if flags.Changed("family") {
			patch.IsFamily = &family
		}

		return s.UpdateContact(ctx, args[0], patch)
	})

	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().StringVar(&phone, "phone", "", "new phone number")
	update.Flags().StringVar(&email, "email", "", "new email")
	update.Flags().StringVar(&relationship, "relationship", "", "new relationship")
	update.Flags().BoolVar(&family, "family", false, "set the family flag")

	return update
}

// newSwitchCommand builds an "<name> on|off" command.
func newSwitchCommand(
	name, short string,
	apply func(*client.Session, context.Context, bool) error,
) *cobra.Command {
	return &cobra.Command{
		Use:       name + " on|off",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: run(func(ctx context.Context, s *client.Session, args []string) error {
			enabled, err := parseSwitch(args[0])
			if err != nil {
				return err
			}

			return apply(s, ctx, enabled)
		}),
	}
}

func newMessagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "Print the alert message log, newest first.",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *client.Session, _ []string) error {
			return s.ListMessages(ctx)
		}),
	}
}

func newTestAlertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test-alert",
		Short: "Send a labelled test alert to the family.",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *client.Session, _ []string) error {
			return s.SendTestAlert(ctx)
		}),
	}
}

func newLocationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "location <lat> <lng>",
		Short: "Report the device position.",
		Args:  cobra.ExactArgs(2), //nolint:mnd // Latitude and longitude.
		RunE: run(func(ctx context.Context, s *client.Session, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse latitude: %w", err)
			}

			lng, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("parse longitude: %w", err)
			}

			return s.ReportLocation(ctx, geo.Point{Lat: lat, Lng: lng})
		}),
	}
}

func newDangerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "danger <label>",
		Short: "Report a detected danger, e.g. Scream.",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(ctx context.Context, s *client.Session, args []string) error {
			return s.ReportDanger(ctx, strings.Join(args, " "))
		}),
	}
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow alert messages, SOS transitions and notifications.",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *client.Session, _ []string) error {
			return s.Watch(ctx)
		}),
	}
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w, got %q", errBadSwitch, v)
	}
}
