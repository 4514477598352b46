package reviewctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/engine"
)

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("usage error")

const usage = `Usage: reviewctl <command> [flags]

Commands:
  list      list local reviews (-filter all|verified|recent|1-5, -page, -size, -json)
  submit    add a local review (-author, -email, -rating, -comment, -verified)
  helpful   mark a local review helpful: helpful <id>
  reply     reply to a local review: reply <id> -author NAME -text TEXT [-admin]
  stats     show rating statistics (-remote for the server's)
  featured  show the server's featured reviews (-limit)
  push      submit a local review to the server: push <id> [-token TOKEN]
`

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return a.list(rest)
	case "submit":
		return a.submit(ctx, rest)
	case "helpful":
		return a.helpful(ctx, rest)
	case "reply":
		return a.reply(ctx, rest)
	case "stats":
		return a.stats(ctx, rest)
	case "featured":
		return a.featured(ctx, rest)
	case "push":
		return a.push(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

// parseWithID accepts the review id either before or after the flags.
func parseWithID(fs *flag.FlagSet, args []string) (int64, error) {
	var raw string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		raw, args = args[0], args[1:]
	}
	if err := parse(fs, args); err != nil {
		return 0, err
	}
	if raw == "" {
		raw = fs.Arg(0)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s: review id required, got %q", ErrUsage, fs.Name(), raw)
	}
	return id, nil
}

func (a *App) list(args []string) error {
	fs := a.flagSet("list")
	filter := fs.String("filter", "all", "all, verified, recent or a star rating 1-5")
	rating := fs.Int("rating", 0, "only reviews with this rating")
	verified := fs.Bool("verified", false, "only verified reviews")
	recent := fs.Bool("recent", false, "only reviews from the last 30 days")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", a.cfg.PageSize, "reviews per page")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parse(fs, args); err != nil {
		return err
	}

	name := *filter
	switch {
	case *rating != 0:
		name = strconv.Itoa(*rating)
	case *verified:
		name = "verified"
	case *recent:
		name = "recent"
	}
	criterion, err := engine.ParseCriterion(name)
	if err != nil {
		return err
	}

	result := engine.Paginate(a.engine.Filter(criterion), *page, *size)
	if *asJSON {
		return writeJSON(a.out, result)
	}

	if len(result.Items) == 0 {
		if result.Page == 1 {
			fmt.Fprintln(a.out, "No reviews yet.")
		} else {
			fmt.Fprintln(a.out, "No more reviews.")
		}
		return nil
	}
	writeReviews(a.out, result.Items)
	if result.HasMore {
		fmt.Fprintf(a.out, "More reviews: -page %d\n", result.Page+1)
	}
	return nil
}

func (a *App) submit(ctx context.Context, args []string) error {
	fs := a.flagSet("submit")
	var in engine.SubmitInput
	fs.StringVar(&in.AuthorName, "author", "", "author name")
	fs.StringVar(&in.AuthorEmail, "email", "", "author email")
	fs.IntVar(&in.Rating, "rating", 0, "rating 1-5")
	fs.StringVar(&in.Comment, "comment", "", "review text")
	fs.BoolVar(&in.Verified, "verified", false, "author is a verified customer")
	if err := parse(fs, args); err != nil {
		return err
	}

	review, err := a.engine.Submit(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Review #%d saved (%s).\n", review.ID, review.Status)
	return nil
}

func (a *App) helpful(ctx context.Context, args []string) error {
	id, err := parseWithID(a.flagSet("helpful"), args)
	if err != nil {
		return err
	}
	review, err := a.engine.MarkHelpful(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Review #%d has %d helpful votes.\n", review.ID, review.Helpful)
	return nil
}

func (a *App) reply(ctx context.Context, args []string) error {
	fs := a.flagSet("reply")
	var in engine.ReplyInput
	fs.StringVar(&in.AuthorName, "author", "", "reply author")
	fs.StringVar(&in.Text, "text", "", "reply text")
	fs.BoolVar(&in.IsAdmin, "admin", false, "reply on behalf of the salon")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	review, err := a.engine.AppendReply(ctx, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Reply added to review #%d (%d replies).\n", review.ID, len(review.Replies))
	return nil
}

func (a *App) stats(ctx context.Context, args []string) error {
	fs := a.flagSet("stats")
	fromServer := fs.Bool("remote", false, "fetch statistics from the review API")
	if err := parse(fs, args); err != nil {
		return err
	}

	if !*fromServer {
		return writeJSON(a.out, a.engine.Statistics())
	}
	stats, err := a.remote.Stats(ctx)
	if err != nil {
		return fmt.Errorf("fetch statistics: %w", err)
	}
	return writeJSON(a.out, stats)
}

func (a *App) featured(ctx context.Context, args []string) error {
	fs := a.flagSet("featured")
	limit := fs.Int("limit", 3, "number of reviews")
	if err := parse(fs, args); err != nil {
		return err
	}

	reviews, err := a.remote.Featured(ctx, *limit)
	if err != nil {
		return fmt.Errorf("fetch featured reviews: %w", err)
	}
	if len(reviews) == 0 {
		fmt.Fprintln(a.out, "No featured reviews yet.")
		return nil
	}
	writeReviews(a.out, reviews)
	return nil
}

func (a *App) push(ctx context.Context, args []string) error {
	fs := a.flagSet("push")
	token := fs.String("token", a.cfg.APIToken, "access token for the review API")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	local, err := a.engine.Get(id)
	if err != nil {
		return err
	}

	if *token == "" && a.cfg.APIEmail != "" {
		tokens, err := a.remote.Login(ctx, a.cfg.APIEmail, a.cfg.APIPassword)
		if err != nil {
			return fmt.Errorf("log in to review api: %w", err)
		}
		*token = tokens.AccessToken
	}

	review, err := a.remote.Submit(ctx, *token, local.Rating, local.Comment)
	if err != nil {
		return fmt.Errorf("push review #%d: %w", id, err)
	}
	fmt.Fprintf(a.out, "Review #%d pushed as server review #%d (%s).\n", id, review.ID, review.Status)
	return nil
}

func writeReviews(w io.Writer, reviews []domain.Review) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRATING\tAUTHOR\tHELPFUL\tREPLIES\tDATE\tCOMMENT")
	for _, r := range reviews {
		author := r.AuthorName
		if r.Verified {
			author += " (verified)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, stars(r.Rating), author, r.Helpful, len(r.Replies),
			r.CreatedAt.Format("2006-01-02"), truncate(r.Comment, 60))
	}
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stars(rating int) string {
	if !domain.ValidRating(rating) {
		return "-"
	}
	return strings.Repeat("*", rating) + strings.Repeat(".", domain.MaxRating-rating)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
