package reltag

import (
	"os"
	"strings"
)

// Environment variables Jenkins exposes to build steps.
const (
	envBuildNumber = "BUILD_NUMBER"
	envBuildID     = "BUILD_ID"
	envBuildURL    = "BUILD_URL"
	envBuildTag    = "BUILD_TAG"
	envJobName     = "JOB_NAME"
	envJenkinsURL  = "JENKINS_URL"
	envGitCommit   = "GIT_COMMIT"
	envGitBranch   = "GIT_BRANCH"
	envChangeID    = "CHANGE_ID"
)

// BuildContext is the metadata a Jenkins job exposes about the build that
// invoked us. Zero values mean the variable was not set.
type BuildContext struct {
	BuildNumber string
	BuildURL    string
	JobName     string
	Commit      string
	Branch      string
	ChangeID    string
}

// IsJenkins reports whether the process appears to run inside a Jenkins
// build, either via JENKINS_URL or the jenkins- BUILD_TAG prefix.
func IsJenkins() bool {
	return os.Getenv(envJenkinsURL) != "" || strings.HasPrefix(os.Getenv(envBuildTag), "jenkins-")
}

// DetectJenkins reads the build metadata from the environment.
// BUILD_ID is used when BUILD_NUMBER is absent; the two report the same
// value on any Jenkins since 1.597.
func DetectJenkins() BuildContext {
	buildNumber := os.Getenv(envBuildNumber)
	if buildNumber == "" {
		buildNumber = os.Getenv(envBuildID)
	}

	return BuildContext{
		BuildNumber: buildNumber,
		BuildURL:    os.Getenv(envBuildURL),
		JobName:     os.Getenv(envJobName),
		Commit:      os.Getenv(envGitCommit),
		Branch:      os.Getenv(envGitBranch),
		ChangeID:    os.Getenv(envChangeID),
	}
}

// IsPullRequest reports whether the build is for a pull request.
func (b BuildContext) IsPullRequest() bool {
	return b.ChangeID != ""
}
