package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/jaxxstorm/reltag"
	"github.com/rs/zerolog"
)

// Version will be set by build process
var Version = "dev"

type CLI struct {
	Debug bool `help:"Enable debug logging."`

	Next    NextCmd    `cmd:"" help:"Calculate the next version from tag history."`
	Tag     TagCmd     `cmd:"" help:"Calculate the next version and publish the git tag."`
	Release ReleaseCmd `cmd:"" help:"Cut a release: git tag, GitHub release, announcements."`
	Status  StatusCmd  `cmd:"" help:"Set a GitHub commit status."`
	Kaniko  KanikoCmd  `cmd:"" help:"Render a Kaniko build pod manifest or executor args."`

	ShowVersion kong.VersionFlag `help:"Show version information" name:"version"`
}

type runContext struct {
	log zerolog.Logger
}

func main() {
	var cli CLI

	kctx := kong.Parse(&cli,
		kong.Name("reltag"),
		kong.Description("Derive and publish release versions from Git tag history"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	level := zerolog.InfoLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	if err := kctx.Run(&runContext{log: log}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// VersionFlags are shared by every command that derives a version.
type VersionFlags struct {
	Path string `short:"p" help:"Repository path (default: current directory)."`
	Mode string `short:"m" default:"rc" enum:"rc,stable" help:"Release mode: rc cuts the next release candidate, stable the next release."`
	Bump string `short:"b" default:"minor" enum:"major,minor,patch" help:"Component bumped for stable releases from a stable tag."`
}

func (f VersionFlags) calculate(currentTag string) (*reltag.VersionDecision, error) {
	if f.Mode == "stable" {
		bump, err := reltag.ParseBump(f.Bump)
		if err != nil {
			return nil, err
		}
		return reltag.NextStable(currentTag, bump)
	}
	return reltag.NextPreRelease(currentTag)
}

func (f VersionFlags) openTags() (*reltag.GitTags, error) {
	path := f.Path
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
	}

	repo, err := reltag.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}

	return reltag.NewGitTags(repo), nil
}

func (f VersionFlags) decide() (*reltag.VersionDecision, error) {
	tags, err := f.openTags()
	if err != nil {
		return nil, err
	}

	currentTag, err := tags.Describe()
	if err != nil {
		return nil, err
	}

	return f.calculate(currentTag)
}

type NextCmd struct {
	VersionFlags
	JSON bool `short:"j" help:"Output the full decision as JSON."`
}

func (c *NextCmd) Run(rc *runContext) error {
	decision, err := c.decide()
	if err != nil {
		return err
	}

	output, err := formatDecision(decision, c.JSON)
	if err != nil {
		return err
	}
	fmt.Println(output)

	return nil
}

type TagCmd struct {
	VersionFlags
	Message string `help:"Tag message; an annotated tag is created when set."`
	Tagger  string `default:"reltag <reltag@localhost>" help:"Tagger identity for annotated tags, as 'Name <email>'."`
}

func (c *TagCmd) Run(rc *runContext) error {
	tags, err := c.openTags()
	if err != nil {
		return err
	}

	currentTag, err := tags.Describe()
	if err != nil {
		return err
	}

	decision, err := c.calculate(currentTag)
	if err != nil {
		return err
	}

	if c.Message != "" {
		name, email := splitIdentity(c.Tagger)
		tags.Tagger = &object.Signature{Name: name, Email: email}
	}

	version := decision.NewVersion.String()
	if err := tags.PublishTag(version, c.Message); err != nil {
		return err
	}

	rc.log.Info().Str("current", currentTag).Str("tag", version).Msg("published tag")
	fmt.Println(version)

	return nil
}

type ReleaseCmd struct {
	VersionFlags
	Owner          string `env:"GITHUB_OWNER" help:"GitHub repository owner."`
	GithubRepo     string `env:"GITHUB_REPO" help:"GitHub repository name."`
	Token          string `env:"GITHUB_TOKEN" help:"GitHub API token."`
	DiscordWebhook string `env:"DISCORD_WEBHOOK_URL" help:"Discord webhook URL for release announcements."`
	Message        string `help:"Tag message; an annotated tag is created when set."`
}

func (c *ReleaseCmd) Run(rc *runContext) error {
	tags, err := c.openTags()
	if err != nil {
		return err
	}
	if c.Message != "" {
		tags.Tagger = &object.Signature{Name: "reltag", Email: "reltag@localhost"}
	}

	publisher, err := reltag.NewGitHubPublisher(c.Owner, c.GithubRepo, c.Token)
	if err != nil {
		return err
	}

	releaser := &reltag.Releaser{
		Source:   tags,
		Tags:     tags,
		Releases: publisher,
		Log:      rc.log,
	}

	if c.DiscordWebhook != "" {
		notifier, err := reltag.NewDiscordNotifier(c.DiscordWebhook)
		if err != nil {
			return err
		}
		releaser.Notifiers = append(releaser.Notifiers, notifier)
	}

	ctx := context.Background()

	var decision *reltag.VersionDecision
	if c.Mode == "stable" {
		bump, err := reltag.ParseBump(c.Bump)
		if err != nil {
			return err
		}
		decision, err = releaser.CutStable(ctx, bump)
		if err != nil {
			return err
		}
	} else {
		decision, err = releaser.CutPreRelease(ctx)
		if err != nil {
			return err
		}
	}

	fmt.Println(decision.NewVersion)

	return nil
}

type StatusCmd struct {
	Owner       string `env:"GITHUB_OWNER" help:"GitHub repository owner."`
	GithubRepo  string `env:"GITHUB_REPO" help:"GitHub repository name."`
	Token       string `env:"GITHUB_TOKEN" help:"GitHub API token."`
	SHA         string `help:"Commit SHA (default: GIT_COMMIT from the Jenkins environment)."`
	State       string `required:"" enum:"pending,success,error,failure" help:"Status state."`
	Context     string `default:"ci/reltag" help:"Status context."`
	Description string `help:"Status description."`
	TargetURL   string `help:"Status target URL (default: BUILD_URL from the Jenkins environment)."`
}

func (c *StatusCmd) Run(rc *runContext) error {
	build := reltag.DetectJenkins()

	sha := c.SHA
	if sha == "" {
		sha = build.Commit
	}
	if sha == "" {
		return fmt.Errorf("commit SHA is required: pass --sha or set GIT_COMMIT")
	}

	targetURL := c.TargetURL
	if targetURL == "" {
		targetURL = build.BuildURL
	}

	publisher, err := reltag.NewGitHubPublisher(c.Owner, c.GithubRepo, c.Token)
	if err != nil {
		return err
	}

	if err := publisher.SetCommitStatus(context.Background(), sha, c.State, targetURL, c.Description, c.Context); err != nil {
		return err
	}

	rc.log.Info().Str("sha", sha).Str("state", c.State).Msg("set commit status")

	return nil
}

type KanikoCmd struct {
	Image          string   `required:"" help:"Destination image repository, without a tag."`
	Tag            string   `required:"" help:"Image tag, typically a calculated version."`
	Context        string   `required:"" help:"Build context URL."`
	Dockerfile     string   `help:"Dockerfile within the context."`
	Namespace      string   `help:"Namespace the build pod runs in."`
	ServiceAccount string   `help:"Service account for the build pod."`
	Secret         string   `help:"Name of the dockerconfigjson registry secret."`
	ExecutorImage  string   `help:"Kaniko executor image override."`
	ExtraArg       []string `help:"Extra executor arguments, repeatable."`
	ArgsOnly       bool     `name:"args" help:"Print the executor arguments instead of the pod manifest."`
}

func (c *KanikoCmd) Run(rc *runContext) error {
	build := reltag.KanikoBuild{
		Image:          c.Image,
		Tag:            c.Tag,
		ContextURL:     c.Context,
		Dockerfile:     c.Dockerfile,
		Namespace:      c.Namespace,
		ServiceAccount: c.ServiceAccount,
		RegistrySecret: c.Secret,
		ExecutorImage:  c.ExecutorImage,
		ExtraArgs:      c.ExtraArg,
	}

	if c.ArgsOnly {
		args, err := build.Args()
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(args, " "))
		return nil
	}

	manifest, err := build.RenderPod()
	if err != nil {
		return err
	}
	fmt.Print(manifest)

	return nil
}

// formatDecision renders a decision for the terminal: the canonical tag,
// or the full record as JSON.
func formatDecision(decision *reltag.VersionDecision, asJSON bool) (string, error) {
	if !asJSON {
		return decision.NewVersion.String(), nil
	}

	encoded, err := json.Marshal(decision)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// splitIdentity parses "Name <email>" into its parts; a missing email
// yields an empty string.
func splitIdentity(identity string) (string, string) {
	open := strings.LastIndex(identity, "<")
	end := strings.LastIndex(identity, ">")
	if open < 0 || end < open {
		return strings.TrimSpace(identity), ""
	}
	return strings.TrimSpace(identity[:open]), strings.TrimSpace(identity[open+1 : end])
}
