package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"webhook-chat/internal/usecase"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Send one question to the webhook and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	svc, err := usecase.NewAskService(a.Relay, a.Suggester, a.UsecaseOptions()...)
	if err != nil {
		return err
	}

	out, err := svc.Ask(cmd.Context(), usecase.AskInput{Question: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, out.Answer)
	if len(out.Suggestions) > 0 {
		fmt.Fprintln(w)
		for _, s := range out.Suggestions {
			fmt.Fprintf(w, "  > %s\n", s)
		}
	}
	return nil
}
