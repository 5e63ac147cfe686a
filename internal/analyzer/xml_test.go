package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederic-klein/yamb/internal/moduleinfo"
	"github.com/frederic-klein/yamb/internal/resource"
)

const mainView = `<mvc:View controllerName="my.app.controller.Main"
	xmlns:mvc="sap.ui.core.mvc" xmlns="sap.m" xmlns:core="sap.ui.core"
	xmlns:html="http://www.w3.org/1999/xhtml"
	core:require="{Formatter: 'my/app/model/formatter'}">
	<Page title="Main">
		<content>
			<Button text="Press"/>
			<html:div/>
			<core:Fragment fragmentName="my.app.view.Dialog" type="XML"/>
		</content>
	</Page>
</mvc:View>`

func TestXMLAnalyzer_View(t *testing.T) {
	info := moduleinfo.New("my/app/view/Main.view.xml")
	res := resource.NewBytes(info.Name, []byte(mainView))

	require.NoError(t, NewXMLAnalyzer(nil).Analyze(context.Background(), res, info))

	assert.Equal(t, []string{
		"sap/ui/core/mvc/XMLView.js",
		"my/app/controller/Main.controller.js",
		"my/app/model/formatter.js",
		"sap/m/Page.js",
		"sap/m/Button.js",
		"sap/ui/core/Fragment.js",
		"my/app/view/Dialog.fragment.xml",
	}, info.Dependencies())
}

func TestXMLAnalyzer_Fragment(t *testing.T) {
	src := `<core:FragmentDefinition xmlns="sap.m" xmlns:core="sap.ui.core">
	<Dialog title="x"><buttons><Button/></buttons></Dialog>
</core:FragmentDefinition>`
	info := moduleinfo.New("my/app/view/Dialog.fragment.xml")

	require.NoError(t, NewXMLAnalyzer(nil).Analyze(context.Background(), resource.NewBytes(info.Name, []byte(src)), info))

	assert.Equal(t, []string{"sap/m/Dialog.js", "sap/m/Button.js"}, info.Dependencies())
}

func TestXMLAnalyzer_Malformed(t *testing.T) {
	info := moduleinfo.New("bad.view.xml")
	err := NewXMLAnalyzer(nil).Analyze(context.Background(), resource.NewBytes(info.Name, []byte("<View><unclosed></View>")), info)

	var perr *ParseError
	assert.True(t, errors.As(err, &perr), "error = %v", err)
}

const libraryDescriptor = `<?xml version="1.0" encoding="UTF-8" ?>
<library xmlns="http://www.sap.com/sap.ui.library.xsd">
	<name>my.lib</name>
	<dependencies>
		<dependency>
			<libraryName>sap.ui.core</libraryName>
		</dependency>
		<dependency>
			<libraryName>sap.m</libraryName>
			<lazy>true</lazy>
		</dependency>
	</dependencies>
</library>`

func TestLibraryAnalyzer(t *testing.T) {
	info := moduleinfo.New("my/lib/.library")

	require.NoError(t, NewLibraryAnalyzer(nil).Analyze(context.Background(), resource.NewBytes(info.Name, []byte(libraryDescriptor)), info))

	assert.Equal(t, []string{"sap/ui/core/library.js", "sap/m/library.js"}, info.Dependencies())
	assert.False(t, info.IsConditionalDependency("sap/ui/core/library.js"))
	assert.True(t, info.IsConditionalDependency("sap/m/library.js"))
}

func TestLibraryJSAnalyzer(t *testing.T) {
	idx := resource.NewIndex(afero.NewMemMapFs())
	idx.Add(resource.NewBytes("my/lib/.library", []byte(libraryDescriptor)))

	tests := []struct {
		name string
		want []string
	}{
		{"my/lib/library.js", []string{"sap/ui/core/library.js", "sap/m/library.js"}},
		{"other/lib/library.js", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := moduleinfo.New(tt.name)
			err := NewLibraryJSAnalyzer(idx, nil).Analyze(context.Background(), resource.NewBytes(tt.name, nil), info)
			require.NoError(t, err)
			assert.Equal(t, tt.want, nilIfEmpty(info.Dependencies()))
		})
	}
}

func TestComponentAnalyzer(t *testing.T) {
	manifest := `{
	"sap.app": {"id": "my.app"},
	"sap.ui5": {
		"rootView": {"viewName": "my.app.view.App", "type": "XML"},
		"dependencies": {
			"libs": {"sap.m": {}, "sap.ui.table": {"lazy": true}}
		},
		"models": {
			"": {"type": "sap.ui.model.json.JSONModel"}
		},
		"routing": {
			"config": {"viewPath": "my.app.view", "viewType": "XML"},
			"targets": {
				"detail": {"viewName": "Detail"},
				"list": {"name": "List", "viewType": "JS"}
			}
		}
	}
}`
	idx := resource.NewIndex(afero.NewMemMapFs())
	idx.Add(resource.NewBytes("my/app/manifest.json", []byte(manifest)))

	info := moduleinfo.New("my/app/Component.js")
	err := NewComponentAnalyzer(idx, nil).Analyze(context.Background(), resource.NewBytes(info.Name, nil), info)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"sap/m/library.js",
		"sap/ui/table/library.js",
		"my/app/view/App.view.xml",
		"sap/ui/model/json/JSONModel.js",
		"my/app/view/Detail.view.xml",
		"my/app/view/List.view.js",
	}, info.Dependencies())
	assert.True(t, info.IsConditionalDependency("sap/ui/table/library.js"))
	assert.True(t, info.IsConditionalDependency("my/app/view/Detail.view.xml"))
	assert.False(t, info.IsConditionalDependency("my/app/view/App.view.xml"))
}

func TestComponentAnalyzer_StringRootView(t *testing.T) {
	var m Manifest
	m.UI5.RootView = &ViewRef{}
	require.NoError(t, m.UI5.RootView.UnmarshalJSON([]byte(`"my.app.view.Root"`)))

	info := moduleinfo.New("my/app/Component.js")
	applyManifest(&m, info)
	assert.Equal(t, []string{"my/app/view/Root.view.xml"}, info.Dependencies())
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
