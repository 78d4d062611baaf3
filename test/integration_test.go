package test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestIntegration builds the createrepo-go binary and drives it against a
// directory of real RPM fixtures, then verifies both the resulting
// repodata/ tree's checksums and (inside a Fedora container) that dnf can
// load its metadata with "dnf makecache".
func TestIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	projectRoot, err := getProjectRoot()
	if err != nil {
		t.Fatalf("Failed to find project root: %v", err)
	}

	t.Log("Building createrepo-go binary...")
	if err := buildCreaterepoGo(projectRoot); err != nil {
		t.Fatalf("Failed to build createrepo-go: %v", err)
	}

	testDir := filepath.Join(projectRoot, "test", "integration-output")
	if err := os.RemoveAll(testDir); err != nil {
		t.Fatalf("Failed to clean test directory: %v", err)
	}
	if err := os.MkdirAll(testDir, 0755); err != nil {
		t.Fatalf("Failed to create test directory: %v", err)
	}

	t.Run("Build", func(t *testing.T) {
		testRPMRepository(t, projectRoot, testDir)
	})

	t.Run("ChecksumVerification", func(t *testing.T) {
		verifyRPMChecksums(t, projectRoot, testDir)
	})

	t.Run("Signed", func(t *testing.T) {
		testSignedRPMRepository(t, projectRoot, testDir)
	})

	if !isDockerAvailable() {
		t.Skip("Docker not available, skipping container dnf test")
	}
	t.Run("DnfMakecache", func(t *testing.T) {
		testDnfInstall(t, projectRoot, testDir)
	})
}

func testRPMRepository(t *testing.T, projectRoot, testDir string) {
	repoDir := filepath.Join(testDir, "rpm-repo")
	fixturesDir := filepath.Join(projectRoot, "test", "fixtures", "rpms")

	rpms, _ := filepath.Glob(filepath.Join(fixturesDir, "*.rpm"))
	if len(rpms) < 2 {
		t.Skip("RPM test packages not found (need 2), run build-test-packages.sh first")
	}

	t.Log("Generating RPM repository with 2 packages...")
	if out, err := runBuild(projectRoot, fixturesDir, repoDir); err != nil {
		t.Fatalf("Failed to generate repository: %v\nOutput: %s", err, out)
	}

	expectedFiles := []string{
		"repodata/repomd.xml",
	}
	for _, file := range expectedFiles {
		path := filepath.Join(repoDir, file)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Expected file not found: %s", file)
		}
	}

	repodataDir := filepath.Join(repoDir, "repodata")
	if _, err := findPrimaryXML(repodataDir); err != nil {
		t.Errorf("primary.xml.gz not found: %v", err)
	}

	t.Log("✓ RPM repository build passed")
}

func testSignedRPMRepository(t *testing.T, projectRoot, testDir string) {
	if _, err := exec.LookPath("gpg"); err != nil {
		t.Skip("gpg not available, skipping signed repository test")
	}

	repoDir := filepath.Join(testDir, "rpm-repo-signed")
	fixturesDir := filepath.Join(projectRoot, "test", "fixtures", "rpms")

	rpms, _ := filepath.Glob(filepath.Join(fixturesDir, "*.rpm"))
	if len(rpms) < 1 {
		t.Skip("RPM test packages not found, run build-test-packages.sh first")
	}

	keyDir := filepath.Join(testDir, "gpg-keys-signed")
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		t.Fatalf("Failed to create key directory: %v", err)
	}
	privateKeyPath := filepath.Join(keyDir, "private.asc")
	publicKeyPath := filepath.Join(keyDir, "public.asc")
	if err := generateTestGPGKey(privateKeyPath, publicKeyPath); err != nil {
		t.Fatalf("Failed to generate GPG key: %v", err)
	}

	binPath := filepath.Join(projectRoot, "createrepo-go")
	cmd := exec.Command(binPath, "build",
		"--input-dir", fixturesDir,
		"--output-dir", repoDir,
		"--gpg-key", privateKeyPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to generate signed repository: %v\nOutput: %s", err, output)
	}

	sigPath := filepath.Join(repoDir, "repodata", "repomd.xml.asc")
	if _, err := os.Stat(sigPath); os.IsNotExist(err) {
		t.Errorf("Expected repomd.xml.asc not found")
	}
	keyPath := filepath.Join(repoDir, "RPM-GPG-KEY")
	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		t.Errorf("Expected RPM-GPG-KEY not found")
	}

	t.Log("✓ signed RPM repository build passed")
}

func testDnfInstall(t *testing.T, projectRoot, testDir string) {
	repoDir := filepath.Join(testDir, "rpm-repo")
	if _, err := os.Stat(filepath.Join(repoDir, "repodata", "repomd.xml")); os.IsNotExist(err) {
		t.Skip("no repository built by testRPMRepository to install from")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dockerCmd := exec.CommandContext(ctx, "docker", "run", "--rm",
		"-v", fmt.Sprintf("%s:/repo:ro", repoDir),
		"fedora:latest",
		"bash", "-c", `
set -e
cat > /etc/yum.repos.d/test.repo <<EOF
[test]
name=Test Repository
baseurl=file:///repo
enabled=1
gpgcheck=0
EOF
dnf makecache
`,
	)
	dockerCmd.Stdout = os.Stdout
	dockerCmd.Stderr = os.Stderr

	if err := dockerCmd.Run(); err != nil {
		t.Fatalf("Docker dnf makecache failed: %v", err)
	}

	t.Log("✓ dnf could read the generated repository")
}

func verifyRPMChecksums(t *testing.T, projectRoot, testDir string) {
	repoDir := filepath.Join(testDir, "checksum-rpm-repo")
	fixturesDir := filepath.Join(projectRoot, "test", "fixtures", "rpms")

	rpms, _ := filepath.Glob(filepath.Join(fixturesDir, "*.rpm"))
	if len(rpms) == 0 {
		t.Skip("RPM test packages not found")
	}

	t.Log("Generating RPM repository for checksum verification...")
	if out, err := runBuild(projectRoot, fixturesDir, repoDir); err != nil {
		t.Fatalf("Failed to generate repository: %v\nOutput: %s", err, out)
	}

	repodataDir := filepath.Join(repoDir, "repodata")
	primaryXML, err := findPrimaryXML(repodataDir)
	if err != nil {
		t.Fatalf("Failed to find primary.xml: %v", err)
	}

	checksums, err := extractRPMChecksums(primaryXML)
	if err != nil {
		t.Fatalf("Failed to extract checksums from primary.xml: %v", err)
	}
	if len(checksums) == 0 {
		t.Fatalf("no checksums found in %s", primaryXML)
	}

	for filename, expectedSHA256 := range checksums {
		pkgPath := filepath.Join(fixturesDir, filename)
		actualSHA256, err := calculateSHA256(pkgPath)
		if err != nil {
			t.Errorf("Failed to calculate checksum for %s: %v", filename, err)
			continue
		}

		if actualSHA256 != expectedSHA256 {
			t.Errorf("Checksum mismatch for %s:\n  Expected (from primary.xml): %s\n  Actual (from file): %s",
				filename, expectedSHA256, actualSHA256)
		} else {
			t.Logf("✓ Checksum verified for %s", filename)
		}
	}
}

func isDockerAvailable() bool {
	cmd := exec.Command("docker", "version")
	return cmd.Run() == nil
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find project root (go.mod)")
}

func buildCreaterepoGo(projectRoot string) error {
	cmd := exec.Command("go", "build", "-o", "createrepo-go", "./cmd/createrepo-go")
	cmd.Dir = projectRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func runBuild(projectRoot, inputDir, outputDir string) ([]byte, error) {
	binPath := filepath.Join(projectRoot, "createrepo-go")
	cmd := exec.Command(binPath, "build",
		"--input-dir", inputDir,
		"--output-dir", outputDir,
	)
	return cmd.CombinedOutput()
}

func generateTestGPGKey(privateKeyPath, publicKeyPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batchContent := `
%no-protection
Key-Type: RSA
Key-Length: 2048
Name-Real: createrepo-go Test Key
Name-Email: test@createrepo-go.local
Expire-Date: 0
%commit
`

	tmpDir := filepath.Dir(privateKeyPath)
	batchFile := filepath.Join(tmpDir, "gpg-batch.txt")
	if err := os.WriteFile(batchFile, []byte(batchContent), 0600); err != nil {
		return fmt.Errorf("failed to create batch file: %w", err)
	}
	defer os.Remove(batchFile)

	gpgHome := filepath.Join(tmpDir, "gpg-home")
	if err := os.MkdirAll(gpgHome, 0700); err != nil {
		return fmt.Errorf("failed to create GPG home: %w", err)
	}

	cmd := exec.CommandContext(ctx, "gpg", "--homedir", gpgHome, "--batch", "--gen-key", batchFile)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to generate GPG key: %w\nOutput: %s", err, output)
	}

	cmd = exec.CommandContext(ctx, "gpg", "--homedir", gpgHome, "--armor", "--export-secret-keys", "test@createrepo-go.local")
	privateKey, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to export private key: %w", err)
	}
	if err := os.WriteFile(privateKeyPath, privateKey, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	cmd = exec.CommandContext(ctx, "gpg", "--homedir", gpgHome, "--armor", "--export", "test@createrepo-go.local")
	publicKey, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to export public key: %w", err)
	}
	if err := os.WriteFile(publicKeyPath, publicKey, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	return nil
}

func extractRPMChecksums(primaryXMLPath string) (map[string]string, error) {
	checksums := make(map[string]string)

	gzOutput, err := exec.Command("gzip", "-d", "-c", primaryXMLPath).Output()
	if err != nil {
		return nil, err
	}
	content := string(gzOutput)

	var currentLocation, currentChecksum string
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, `<location href="`) {
			start := strings.Index(line, `href="`) + 6
			end := strings.Index(line[start:], `"`)
			if end > 0 {
				currentLocation = filepath.Base(line[start : start+end])
			}
		}
		if strings.Contains(line, `<checksum type="sha256"`) {
			start := strings.Index(line, ">") + 1
			end := strings.Index(line[start:], "<")
			if end > 0 {
				currentChecksum = line[start : start+end]
			}
		}
		if currentLocation != "" && currentChecksum != "" {
			checksums[currentLocation] = currentChecksum
			currentLocation = ""
			currentChecksum = ""
		}
	}

	return checksums, nil
}

func findPrimaryXML(repodataDir string) (string, error) {
	files, err := os.ReadDir(repodataDir)
	if err != nil {
		return "", err
	}

	for _, file := range files {
		if strings.Contains(file.Name(), "primary.xml.gz") {
			return filepath.Join(repodataDir, file.Name()), nil
		}
	}

	return "", fmt.Errorf("primary.xml.gz not found in %s", repodataDir)
}

func calculateSHA256(path string) (string, error) {
	cmd := exec.Command("sha256sum", path)
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	parts := strings.Fields(string(output))
	if len(parts) == 0 {
		return "", fmt.Errorf("invalid sha256sum output")
	}

	return parts[0], nil
}
