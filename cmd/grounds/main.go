// Command grounds is an offline admin tool operating directly on the
// task store: seeding bootstrap accounts and inspecting tasks and
// accounts without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/gardenops/grounds/internal/account"
	accountrepo "github.com/gardenops/grounds/internal/account/repositoryimpl"
	"github.com/gardenops/grounds/internal/config"
	"github.com/gardenops/grounds/internal/task"
	taskrepo "github.com/gardenops/grounds/internal/task/repositoryimpl"
	"github.com/gardenops/grounds/pkg/storage"
)

var (
	app = kingpin.New("grounds", "Admin tool for the Grounds task tracker")

	seedCmd  = app.Command("seed", "Create bootstrap accounts from a seed file")
	seedFile = seedCmd.Arg("file", "Seed file (YAML)").Required().String()

	tasksCmd      = app.Command("tasks", "Task commands")
	tasksListCmd  = tasksCmd.Command("list", "List tasks")
	tasksListView = tasksListCmd.Flag("view", "View context: home, admin or archive").Default("admin").String()
	tasksListCat  = tasksListCmd.Flag("category", "Filter by category").Default(task.FilterAll).String()

	accountsCmd     = app.Command("accounts", "Account commands")
	accountsListCmd = accountsCmd.Command("list", "List accounts")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fatal(err)
	}
	store, err := storage.NewLocalStorage(env.StorageEnv.BaseDir)
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()
	switch command {
	case seedCmd.FullCommand():
		runSeed(ctx, store, *seedFile)
	case tasksListCmd.FullCommand():
		runTasksList(ctx, store, *tasksListView, *tasksListCat)
	case accountsListCmd.FullCommand():
		runAccountsList(ctx, store)
	}
}

func runSeed(ctx context.Context, store storage.Storage, path string) {
	seeds, err := account.LoadSeedFile(path)
	if err != nil {
		fatal(err)
	}
	created, err := account.Seed(ctx, accountrepo.NewJSONRepository(store), seeds)
	if err != nil {
		fatal(err)
	}
	color.Green("created %d account(s)", created)
}

func runTasksList(ctx context.Context, store storage.Storage, view, category string) {
	viewCtx, err := task.ParseViewContext(view)
	if err != nil {
		fatal(err)
	}
	repo := taskrepo.NewJSONRepository(store)
	tasks, err := repo.List(ctx)
	if err != nil {
		fatal(err)
	}

	// The CLI runs with operator privileges.
	admin := account.Viewer{Role: account.RoleAdmin}
	now := time.Now()
	visible := task.Apply(tasks, admin, task.Filter{View: viewCtx, Category: category, AssigneeID: task.FilterAll}, now)

	bold := color.New(color.Bold)
	for _, t := range visible {
		bold.Printf("%-27s", t.ID)
		fmt.Printf(" %-21s %-11s %s", t.Category, t.DueDate.Format(task.DateLayout), t.Title)
		if t.Completed {
			color.Green(" [completed]")
		} else if t.IsOverdue(now) {
			color.Red(" [overdue]")
		} else if t.IsUrgent(now) {
			color.Yellow(" [urgent]")
		} else {
			fmt.Println()
		}
	}
	fmt.Printf("%d task(s)\n", len(visible))
}

func runAccountsList(ctx context.Context, store storage.Storage) {
	repo := accountrepo.NewJSONRepository(store)
	accounts, err := repo.List(ctx)
	if err != nil {
		fatal(err)
	}
	bold := color.New(color.Bold)
	for _, a := range accounts {
		bold.Printf("%-27s", a.ID)
		fmt.Printf(" %-9s %-20s %s\n", a.Role, a.Username, a.DisplayName)
	}
	fmt.Printf("%d account(s)\n", len(accounts))
}

func fatal(err error) {
	color.Red("error: %s", err)
	os.Exit(1)
}
