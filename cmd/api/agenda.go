package main

import (
	"assignmentTracker/internal/app"
	"assignmentTracker/internal/config"
	"assignmentTracker/internal/render"
	"assignmentTracker/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var (
	agendaPassphrase string
	agendaLecture    string
	agendaHideDone   bool
)

func agendaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Показать видимые задачи по лекциям в терминале",
		Args:  cobra.NoArgs,
		RunE:  runAgenda,
	}

	cmd.Flags().StringVarP(&agendaPassphrase, "passphrase", "p", "", "пароль-идентификатор пользователя")
	cmd.Flags().StringVarP(&agendaLecture, "lecture", "l", "", "показать только одну лекцию")
	cmd.Flags().BoolVar(&agendaHideDone, "hide-done", false, "скрыть выполненные задачи")
	_ = cmd.MarkFlagRequired("passphrase")

	return cmd
}

func runAgenda(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a := app.New(cfg)
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	if err := a.InitService(cmd.Context()); err != nil {
		return err
	}

	svc := a.Service()
	groups, err := svc.ListByLecture(cmd.Context(), agendaPassphrase, service.ListQuery{
		Lecture:  agendaLecture,
		HideDone: agendaHideDone,
	})
	if err != nil {
		return err
	}

	return render.NewAgenda(svc.Location()).Render(cmd.OutOrStdout(), groups)
}
