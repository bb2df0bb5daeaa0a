package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/telemacy/bridge-packager/internal/logger"
	"github.com/telemacy/bridge-packager/internal/toolchain"
)

// ErrInstallerToolMissing marks an absent installer generator. Unlike other
// missing tools it is not fatal to the run: the orchestrator reports the
// unpackaged bundle as a successful partial outcome and skips this stage.
var ErrInstallerToolMissing = errors.New("installer tool not available")

// WindowsOptions configures Windows installer generation.
type WindowsOptions struct {
	// BundleDir is the merged output tree embedded into the installer.
	BundleDir string
	// OutputDir receives the generated script and the final artifact.
	OutputDir string
	// Version is embedded in the artifact filename and installer metadata.
	Version string
	// AppName is the product name shown to the end user.
	AppName string
	// ArtifactBase is the artifact-safe name used in filenames and registry values.
	ArtifactBase string
	// BridgeLauncher and TrackerLauncher are the process names the install-time
	// and uninstall-time kill guards match on.
	BridgeLauncher  string
	TrackerLauncher string
	// Tool overrides the installer compiler executable (default "iscc").
	Tool string
}

// setupScript is the generated Inno Setup source. The guard in
// InitializeSetup runs unconditionally: upgrade detection is unreliable when
// a previous version is mid-uninstall, so both processes are always killed
// before any file is copied.
const setupScript = `; Generated by bridge-packager. Do not edit.
[Setup]
AppId={{.ArtifactBase}}
AppName={{.AppName}}
AppVersion={{.Version}}
AppPublisher=Telemacy
DefaultDirName={autopf}\{{.AppName}}
DefaultGroupName={{.AppName}}
UninstallDisplayIcon={app}\{{.BridgeLauncher}}
OutputDir={{.OutputDir}}
OutputBaseFilename={{.ArtifactBase}}-Setup-{{.Version}}
PrivilegesRequired=lowest
PrivilegesRequiredOverridesAllowed=dialog
UsePreviousAppDir=yes
Compression=lzma2
SolidCompression=yes
DisableProgramGroupPage=yes

[Tasks]
Name: "desktopicon"; Description: "Create a &desktop shortcut"; Flags: unchecked
Name: "startup"; Description: "Launch {{.AppName}} at startup"; Flags: unchecked

[Files]
Source: "{{.BundleDir}}\*"; DestDir: "{app}"; Flags: recursesubdirs createallsubdirs ignoreversion

[Icons]
Name: "{autoprograms}\{{.AppName}}"; Filename: "{app}\{{.BridgeLauncher}}"
Name: "{autodesktop}\{{.AppName}}"; Filename: "{app}\{{.BridgeLauncher}}"; Tasks: desktopicon

[Registry]
Root: HKCU; Subkey: "Software\Microsoft\Windows\CurrentVersion\Run"; ValueType: string; ValueName: "{{.ArtifactBase}}"; ValueData: """{app}\{{.BridgeLauncher}}"""; Tasks: startup; Flags: uninsdeletevalue

[Run]
Filename: "{app}\{{.BridgeLauncher}}"; Description: "Launch {{.AppName}}"; Flags: nowait postinstall skipifsilent

[UninstallRun]
Filename: "{cmd}"; Parameters: "/C taskkill /F /IM {{.BridgeLauncher}} /T"; Flags: runhidden; RunOnceId: "KillBridge"
Filename: "{cmd}"; Parameters: "/C taskkill /F /IM {{.TrackerLauncher}} /T"; Flags: runhidden; RunOnceId: "KillTracker"

[Code]
function InitializeSetup(): Boolean;
var
  ResultCode: Integer;
begin
  Exec(ExpandConstant('{cmd}'), '/C taskkill /F /IM {{.BridgeLauncher}} /T', '', SW_HIDE, ewWaitUntilTerminated, ResultCode);
  Exec(ExpandConstant('{cmd}'), '/C taskkill /F /IM {{.TrackerLauncher}} /T', '', SW_HIDE, ewWaitUntilTerminated, ResultCode);
  Result := True;
end;
`

var setupTemplate = template.Must(template.New("inno-setup").Parse(setupScript))

const isccRemediation = "install Inno Setup 6 and add ISCC.exe to PATH"

// PackageWindows renders the installer script and compiles it. The returned
// path is the final self-extracting installer.
func PackageWindows(ctx context.Context, opts WindowsOptions) (string, error) {
	tool := opts.Tool
	if tool == "" {
		tool = "iscc"
	}

	toolPath, err := toolchain.Lookup(tool, isccRemediation)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInstallerToolMissing, err)
	}

	scriptPath := filepath.Join(opts.OutputDir, "installer.iss")

	if err = renderScript(scriptPath, opts); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Compiling installer", "script", scriptPath)

	if _, err = toolchain.Run(ctx, opts.OutputDir, toolPath, scriptPath); err != nil {
		return "", fmt.Errorf("compile installer: %w", err)
	}

	artifact := filepath.Join(opts.OutputDir,
		fmt.Sprintf("%s-Setup-%s.exe", opts.ArtifactBase, opts.Version))

	if _, err = os.Stat(artifact); err != nil {
		return "", fmt.Errorf("installer artifact missing after compile: %w", err)
	}

	return artifact, nil
}

// renderScript writes the generated installer source to disk.
func renderScript(path string, opts WindowsOptions) error {
	out, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create installer script: %w", err)
	}

	if err = setupTemplate.Execute(out, opts); err != nil {
		_ = out.Close()
		return fmt.Errorf("render installer script: %w", err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("write installer script: %w", err)
	}

	return nil
}
