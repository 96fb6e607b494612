package script

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/perfcanvas/scriptstore/internal/pathx"
	"github.com/perfcanvas/scriptstore/internal/server/models"
)

// mainScriptDir is where the main test script lives inside a scaffolded
// maven project.
const mainScriptDir = "src/main/groovy"

// GroovyMavenHandler scaffolds a maven-layout Groovy project instead of a
// single script entry.
type GroovyMavenHandler struct {
	baseHandler
}

func NewGroovyMavenHandler() *GroovyMavenHandler {
	return &GroovyMavenHandler{baseHandler{
		key:          "groovy_maven",
		title:        "Groovy Maven Project",
		extension:    "groovy",
		templateName: "groovy.tmpl",
	}}
}

func (h *GroovyMavenHandler) DefaultQuickTestPath(basePath string) string {
	return pathx.Join(basePath, mainScriptDir, quickTestFileName+"."+h.extension)
}

// PrepareScaffold persists the project layout: project descriptor, the main
// script, and optionally empty lib/ and resources/ folders.
func (h *GroovyMavenHandler) PrepareScaffold(ctx context.Context, user models.User, path, fileName, name, url string, libAndResource bool, mainScript string, saver Saver) error {
	root := pathx.Join(path, fileName)

	pom, err := renderPom(name)
	if err != nil {
		return fmt.Errorf("render project descriptor: %w", err)
	}
	if err := saver.Save(ctx, user, &models.FileEntry{
		Path:        pathx.Join(root, "pom.xml"),
		FileType:    models.FileTypeFile,
		Content:     []byte(pom),
		Description: fmt.Sprintf("Create project %s", name),
	}); err != nil {
		return fmt.Errorf("save project descriptor: %w", err)
	}

	if err := saver.Save(ctx, user, &models.FileEntry{
		Path:        pathx.Join(root, mainScriptDir, quickTestFileName+"."+h.extension),
		FileType:    models.FileTypeFile,
		Content:     []byte(mainScript),
		Description: fmt.Sprintf("Create main script for %s", name),
		Properties:  map[string]string{"targetHosts": pathx.HostOf(url)},
	}); err != nil {
		return fmt.Errorf("save main script: %w", err)
	}

	if libAndResource {
		for _, folder := range []string{"lib", "resources"} {
			if err := saver.Save(ctx, user, &models.FileEntry{
				Path:        pathx.Join(root, folder),
				FileType:    models.FileTypeDir,
				Description: fmt.Sprintf("Create %s folder", folder),
			}); err != nil {
				return fmt.Errorf("save %s folder: %w", folder, err)
			}
		}
	}
	return nil
}

var pomTemplate = template.Must(template.New("pom").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
	<modelVersion>4.0.0</modelVersion>
	<groupId>scriptstore</groupId>
	<artifactId>{{.name}}</artifactId>
	<version>1.0-SNAPSHOT</version>
	<dependencies>
		<dependency>
			<groupId>net.sf.grinder</groupId>
			<artifactId>grinder-groovy</artifactId>
			<version>3.9.1</version>
		</dependency>
	</dependencies>
</project>
`))

func renderPom(name string) (string, error) {
	var buf bytes.Buffer
	if err := pomTemplate.Execute(&buf, map[string]any{"name": name}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
