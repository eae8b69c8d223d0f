// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/confkit/confkit/internal/config"
	"github.com/confkit/confkit/internal/eventhub"
	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/internal/runtime"
	"github.com/confkit/confkit/internal/vcs"
)

// TaskIDLength is the length of generated task ids.
const TaskIDLength = 11

// ErrNoProject is returned when a RunRequest carries no project configuration.
var ErrNoProject = errors.New("no project configuration")

type (
	// Options tune a run.
	Options struct {
		// DryRun prints the resolved steps instead of running them.
		DryRun  bool
		Verbose bool
		// Branch overrides the project's source branch.
		Branch string
		// Force recreates the step containers before the first step.
		Force bool
		// Env holds KEY=VALUE overrides applied last.
		Env map[string]string
		// Stdout receives the dry-run listing. Defaults to os.Stdout.
		Stdout io.Writer
	}

	// RunRequest identifies the project to run.
	RunRequest struct {
		Space         string
		Project       string
		SpaceConfig   *config.SpaceConfig
		ProjectConfig *config.ProjectConfig
		Options       Options
	}

	// Runner executes projects.
	Runner struct {
		builder    *runtime.Builder
		dispatcher *runtime.Dispatcher
		engines    runtime.EngineProvider
		publisher  eventhub.Publisher
		newTaskID  func() string
		logger     *slog.Logger
	}

	// RunnerOption configures a Runner.
	RunnerOption func(*Runner)

	// Dependencies are the collaborators RunProject wires into a Runner.
	Dependencies struct {
		Engines   runtime.EngineProvider
		Publisher eventhub.Publisher
		VCS       vcs.Resolver
		Logger    *slog.Logger
	}
)

// WithEngines sets the engine used to prepare container steps.
func WithEngines(p runtime.EngineProvider) RunnerOption {
	return func(r *Runner) { r.engines = p }
}

// WithPublisher sets where task logs and status events go.
func WithPublisher(p eventhub.Publisher) RunnerOption {
	return func(r *Runner) { r.publisher = p }
}

// WithTaskIDFunc replaces NewTaskID.
func WithTaskIDFunc(fn func() string) RunnerOption {
	return func(r *Runner) { r.newTaskID = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewTaskID returns a short random task id.
func NewTaskID() string {
	return uuid.NewString()[:TaskIDLength]
}

// NewRunner creates a Runner from its two stages.
func NewRunner(builder *runtime.Builder, dispatcher *runtime.Dispatcher, opts ...RunnerOption) *Runner {
	r := &Runner{
		builder:    builder,
		dispatcher: dispatcher,
		newTaskID:  NewTaskID,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRunnerFromConfig wires a Runner whose directories come from cfg.
func NewRunnerFromConfig(cfg *config.Config, deps Dependencies) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	builderOpts := []runtime.BuilderOption{runtime.WithBuilderLogger(logger)}
	if deps.VCS != nil {
		builderOpts = append(builderOpts, runtime.WithVCSResolver(deps.VCS))
	}
	builder := runtime.NewBuilder(runtime.Roots{
		HostWorkspace: cfg.ResolvePath(cfg.WorkspaceDir),
		HostArtifacts: cfg.ResolvePath(cfg.ArtifactsDir),
		Logs:          cfg.ResolvePath(cfg.LogDir),
	}, builderOpts...)

	var dispatcherOpts []runtime.DispatcherOption
	var runnerOpts []RunnerOption
	if deps.Engines != nil {
		dispatcherOpts = append(dispatcherOpts, runtime.WithEngines(deps.Engines))
		runnerOpts = append(runnerOpts, WithEngines(deps.Engines))
	}
	if deps.Publisher != nil {
		dispatcherOpts = append(dispatcherOpts, runtime.WithPublisher(deps.Publisher))
		runnerOpts = append(runnerOpts, WithPublisher(deps.Publisher))
	}
	runnerOpts = append(runnerOpts, WithLogger(logger))

	return NewRunner(builder, runtime.NewDispatcher(dispatcherOpts...), runnerOpts...)
}

// RunProject finds project in space and runs it.
func RunProject(ctx context.Context, cfg *config.Config, space, project string, opts Options, deps Dependencies) (*TaskResult, error) {
	p, err := cfg.FindProject(space, project)
	if err != nil {
		return nil, err
	}
	sp, _ := cfg.Space(space)
	return NewRunnerFromConfig(cfg, deps).Run(ctx, RunRequest{
		Space:         space,
		Project:       project,
		SpaceConfig:   sp,
		ProjectConfig: p,
		Options:       opts,
	})
}

// Run executes the project's steps in order. Configuration and engine
// errors are returned before any step starts; step failures are reported
// through the TaskResult.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*TaskResult, error) {
	p := req.ProjectConfig
	if p == nil {
		return nil, issue.WrapWithContext(ErrNoProject, issue.ConfigurationId, "run project", req.Space+"/"+req.Project)
	}

	taskID := r.newTaskID()
	ec, err := r.builder.Build(ctx, runtime.BuildRequest{
		TaskID:        taskID,
		Space:         req.Space,
		Project:       req.Project,
		ProjectConfig: p,
		Branch:        req.Options.Branch,
		Overrides:     req.Options.Env,
	})
	if err != nil {
		return nil, err
	}

	if err := r.prepareContainers(ctx, p, req.Options); err != nil {
		return nil, err
	}

	result := newTaskResult(taskID, ec.LogPath)
	result.start()

	if req.Options.DryRun {
		r.dryRun(ec, result, req.Options)
		result.finish()
		return result, nil
	}

	log := r.dispatcher.Logger(ec, "task:"+taskID)
	log.Status(TaskRunning.String())
	r.logTaskInfo(log, ec, req.Options.Verbose)

	for _, dir := range []string{ec.HostWorkspaceDir, ec.HostArtifactsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, issue.WrapWithContext(err, issue.IOId, "create task directory", dir)
		}
	}

	if err := r.runSteps(ctx, ec, p.Steps, result, log); err != nil {
		result.Canceled = true
	}
	r.clean(ec, log)

	result.finish()
	r.logSummary(log, result)
	log.Status(result.Status.String())
	return result, nil
}

// prepareContainers checks that container steps have an engine and, when
// forced, recreates their containers. Dry runs need no engine.
func (r *Runner) prepareContainers(ctx context.Context, p *config.ProjectConfig, opts Options) error {
	var names []string
	for _, s := range p.Steps {
		if s.IsContainer() && !slices.Contains(names, s.Container) {
			names = append(names, s.Container)
		}
	}
	if len(names) == 0 || opts.DryRun {
		return nil
	}

	if r.engines == nil {
		return issue.NewErrorContext().
			WithKind(issue.ConfigurationId).
			WithOperation("prepare container steps").
			WithResource(p.Name).
			WithSuggestion("Configure a container engine in " + config.FileName).
			Wrap(fmt.Errorf("steps use containers %s but no engine is available", strings.Join(names, ", "))).
			BuildError()
	}
	engine, err := r.engines.Engine()
	if err != nil {
		return issue.WrapWithContext(err, issue.ConfigurationId, "prepare container steps", p.Name)
	}
	if !opts.Force {
		return nil
	}
	for _, name := range names {
		r.logger.Info("recreating container", "container", name)
		if err := engine.CreateContainer(ctx, name, true); err != nil {
			return err
		}
	}
	return nil
}

// runSteps returns the context error when the run is canceled before all
// steps were reached. Step failures are recorded in result, not returned.
func (r *Runner) runSteps(ctx context.Context, ec *runtime.ExecutionContext, steps []config.StepConfig,
	result *TaskResult, log eventhub.TaskLogger,
) error {
	log.Infof("%s", header("Execution Steps"))
	log.Infof("Start to execute project: %s (total %d steps)", ec.ProjectName, len(steps))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			log.Errorf("Run canceled before step '%s': %v", step.Name, err)
			return err
		}
		log.Infof("[%d/%d] %s", i+1, len(steps), step.Name)

		sr := r.dispatcher.Execute(ctx, ec, step)
		result.Steps = append(result.Steps, sr)

		switch sr.Status {
		case runtime.StepSkipped:
			log.Infof("Step '%s' has no commands, skipped", step.Name)
		case runtime.StepFailed:
			if step.ContinueOnError {
				log.Warnf("Step '%s' failed (exit code %d), continuing: %s", step.Name, sr.ExitCode, sr.Error)
				continue
			}
			log.Errorf("Step '%s' failed (exit code %d): %s", step.Name, sr.ExitCode, sr.Error)
			log.Errorf("Step '%s' failed, stop execution", step.Name)
			return nil
		default:
			log.Infof("Step '%s' succeeded in %s", step.Name, sr.Duration.Round(millisecond))
		}
	}
	return nil
}

func (r *Runner) clean(ec *runtime.ExecutionContext, log eventhub.TaskLogger) {
	if ec.CleanWorkspace {
		log.Infof("Cleaning workspace %s", ec.HostWorkspaceDir)
		if err := os.RemoveAll(ec.HostWorkspaceDir); err != nil {
			log.Warnf("Failed to clean workspace: %v", err)
		}
	}
	if ec.CleanArtifacts {
		log.Infof("Cleaning artifacts %s", ec.HostArtifactsDir)
		if err := os.RemoveAll(ec.HostArtifactsDir); err != nil {
			log.Warnf("Failed to clean artifacts: %v", err)
		}
	}
}

func (r *Runner) logTaskInfo(log eventhub.TaskLogger, ec *runtime.ExecutionContext, verbose bool) {
	log.Infof("%s", header("Task Info"))
	log.Infof("Task: %s", ec.TaskID)
	log.Infof("Space: %s", ec.SpaceName)
	log.Infof("Project: %s", ec.ProjectName)
	log.Infof("Host workspace dir: %s", ec.HostWorkspaceDir)
	log.Infof("Container workspace dir: %s", ec.ContainerWorkspaceDir)

	if ec.VCS != nil {
		log.Infof("%s", header("Git Info"))
		log.Infof("Repository: %s", ec.VCS.RepoURL)
		log.Infof("Branch: %s", ec.VCS.Branch)
		log.Infof("Commit: %s", ec.VCS.CommitHash)
		if ec.VCS.ProjectVersion != "" {
			log.Infof("Version: %s", ec.VCS.ProjectVersion)
		}
	}

	level := eventhub.LevelDebug
	if verbose {
		level = eventhub.LevelInfo
	}
	env := ec.Env()
	log.Log(level, header("Environment"))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		log.Log(level, k+": "+env[k])
	}
}

func (r *Runner) logSummary(log eventhub.TaskLogger, result *TaskResult) {
	c := result.Counts()
	log.Infof("%s", header("Execution Summary"))
	log.Infof("Total steps: %d", len(result.Steps))
	log.Infof("Success: %d, Failed: %d, Skipped: %d", c.Success, c.Failed, c.Skipped)
	if result.Canceled {
		log.Warnf("Run canceled after %d started steps", len(result.Steps))
	}
	log.Infof("Started at: %s", result.StartedAt.Format(timestampLayout))
	log.Infof("Finished at: %s", result.FinishedAt.Format(timestampLayout))
	log.Infof("Total duration: %.1fs", result.Duration.Seconds())
	log.Infof("Status: %s", result.Status)
}
