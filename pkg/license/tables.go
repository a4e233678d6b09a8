package license

// Common maps trove license labels to the names of licenses shipped by the
// base system's licenses package. Packages under these need no license
// file of their own.
var Common = map[string]string{
	"GNU Affero General Public License v3":                    "AGPL3",
	"GNU Affero General Public License v3 or later (AGPLv3+)": "AGPL3",
	"Apache Software License":                                 "Apache",
	"Artistic License":                                        "Artistic2.0",
	"GNU Free Documentation License (FDL)":                    "FDL1.3",
	"GNU General Public License (GPL)":                        "GPL",
	"GNU General Public License v2 (GPLv2)":                   "GPL2",
	"GNU General Public License v2 or later (GPLv2+)":         "GPL2",
	"GNU General Public License v3 (GPLv3)":                   "GPL3",
	"GNU General Public License v3 or later (GPLv3+)":         "GPL3",
	"GNU Library or Lesser General Public License (LGPL)":     "LGPL",
	"GNU Lesser General Public License v2 (LGPLv2)":           "LGPL2.1",
	"GNU Lesser General Public License v2 or later (LGPLv2+)": "LGPL2.1",
	"GNU Lesser General Public License v3 (LGPLv3)":           "LGPL3",
	"GNU Lesser General Public License v3 or later (LGPLv3+)": "LGPL3",
	"Mozilla Public License 1.1 (MPL 1.1)":                    "MPL",
	"Mozilla Public License 2.0 (MPL 2.0)":                    "MPL",
	"Python Software Foundation License":                      "PSF",
	"W3C License":                                             "W3C",
	"Zope Public License":                                     "ZPL",
}

// Special maps trove labels of standard licenses whose text carries a
// per-project copyright line, so the text has to ship with the package.
var Special = map[string]string{
	"BSD License":                          "BSD",
	"MIT License":                          "MIT",
	"zlib/libpng License":                  "ZLIB",
	"Python License (CNRI Python License)": "Python",
}

// FileNames are the conventional license file names, in probe order.
var FileNames = []string{
	"LICENSE", "LICENSE.txt", "license.txt",
	"COPYING.md", "COPYING.rst", "COPYING.txt",
	"COPYRIGHT",
}
