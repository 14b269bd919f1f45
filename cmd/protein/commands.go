package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/proteinpath/protein-path-go/internal/apperr"
	"github.com/proteinpath/protein-path-go/internal/estimate"
	"github.com/proteinpath/protein-path-go/internal/model"
	"github.com/proteinpath/protein-path-go/internal/service"
)

var errNotSignedIn = errors.New("not signed in; run 'protein login <email> <password>'")

func (a *app) cmdSignUp(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: signup <email> <password>")
	}
	s, err := a.session.SignUp(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed up as %s\n", s.Identity.Email)
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <email> <password>")
	}
	s, err := a.session.SignIn(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s until %s\n", s.Identity.Email, s.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	a.session.SignOut(ctx)
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) cmdWhoAmI(ctx context.Context) error {
	id, ok := a.session.Identity(ctx)
	if !ok {
		return errNotSignedIn
	}
	fmt.Fprintf(a.out, "%s (%s)\n", id.Email, id.ID)
	return nil
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	mealType := fs.String("type", "", "breakfast, lunch, dinner or snack")
	imagePath := fs.String("image", "", "Photo of the meal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := model.CaptureRequest{
		Description: strings.Join(fs.Args(), " "),
		Type:        *mealType,
	}
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}
		req.Image = base64.StdEncoding.EncodeToString(data)
	}

	meal, err := a.meals.Capture(ctx, req)
	if err != nil {
		return explain(err)
	}

	n := meal.Nutrition
	fmt.Fprintf(a.out, "Logged %s (%s, %s)\n", meal.Name, meal.Type, n.EstimatedWeight)
	fmt.Fprintf(a.out, "  %.0f kcal  %.1fg protein  %.1fg carbs  %.1fg fat  %.1fg sugar\n", n.Calories, n.Protein, n.Carbs, n.Fat, n.Sugar)
	fmt.Fprintf(a.out, "  id %s\n", meal.ID)
	return nil
}

func (a *app) cmdList(ctx context.Context) error {
	meals, err := a.meals.List(ctx)
	if err != nil {
		return explain(err)
	}
	if len(meals) == 0 {
		fmt.Fprintln(a.out, "No meals logged yet")
		return nil
	}
	printMeals(a.out, meals)
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <id>")
	}
	if err := a.meals.Remove(ctx, args[0]); err != nil {
		return explain(err)
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

func (a *app) cmdGoals(ctx context.Context, args []string) error {
	id, ok := a.session.Identity(ctx)
	if !ok {
		return errNotSignedIn
	}

	g := a.goals.Load(ctx, id.ID)

	fs := flag.NewFlagSet("goals", flag.ContinueOnError)
	fs.Float64Var(&g.Calories, "calories", g.Calories, "Daily calories (kcal)")
	fs.Float64Var(&g.Protein, "protein", g.Protein, "Daily protein (g)")
	fs.Float64Var(&g.Carbs, "carbs", g.Carbs, "Daily carbs (g)")
	fs.Float64Var(&g.Fat, "fat", g.Fat, "Daily fat (g)")
	fs.Float64Var(&g.Sugar, "sugar", g.Sugar, "Daily sugar limit (g)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NFlag() > 0 {
		if !g.Valid() {
			return fmt.Errorf("every goal must be a positive number")
		}
		a.goals.Save(ctx, id.ID, g)
	}

	fmt.Fprintf(a.out, "Calories %.0f kcal\nProtein  %.0f g\nCarbs    %.0f g\nFat      %.0f g\nSugar    %.0f g\n",
		g.Calories, g.Protein, g.Carbs, g.Fat, g.Sugar)
	return nil
}

func (a *app) cmdSummary(ctx context.Context, args []string) error {
	id, ok := a.session.Identity(ctx)
	if !ok {
		return errNotSignedIn
	}

	var date string
	if len(args) > 0 {
		date = args[0]
	}

	sum, err := a.meals.DaySummary(ctx, date, a.goals.Load(ctx, id.ID))
	if err != nil {
		return explain(err)
	}

	fmt.Fprintf(a.out, "%s\n\n", sum.Date)
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, row := range []struct {
		label string
		unit  string
		p     model.MacroProgress
	}{
		{"Calories", "kcal", sum.Calories},
		{"Protein", "g", sum.Protein},
		{"Carbs", "g", sum.Carbs},
		{"Fat", "g", sum.Fat},
		{"Sugar", "g", sum.Sugar},
	} {
		fmt.Fprintf(w, "%s\t%.0f / %.0f %s\t%3.0f%%\n", row.label, row.p.Consumed, row.p.Goal, row.unit, row.p.Percent)
	}
	w.Flush()

	if len(sum.Meals) > 0 {
		fmt.Fprintln(a.out)
		printMeals(a.out, sum.Meals)
	}
	return nil
}

func printMeals(out io.Writer, meals []model.Meal) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tNAME\tKCAL\tPROTEIN\tID")
	for _, m := range meals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%.1fg\t%s\n",
			m.Time().Local().Format("Jan 02 15:04"), m.Type, m.Name, m.Nutrition.Calories, m.Nutrition.Protein, m.ID)
	}
	w.Flush()
}

// explain turns service errors into something actionable at a terminal.
func explain(err error) error {
	var eerr *estimate.Error
	switch {
	case errors.As(err, &eerr) && eerr.Category == estimate.InvalidCredentials:
		return fmt.Errorf("the AI provider rejected the API key; check GEMINI_API_KEY or OPENAI_API_KEY")
	case errors.As(err, &eerr) && eerr.Category == estimate.QuotaExceeded:
		return fmt.Errorf("the AI provider quota is exhausted; wait a moment and try again")
	case service.IsStale(err):
		return fmt.Errorf("the signed-in account changed while the command ran; try again")
	case errors.Is(err, apperr.ErrAuth):
		return errNotSignedIn
	default:
		return err
	}
}
