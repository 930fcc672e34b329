package recipes

// builtinAliases maps asset shortnames that differ from the item
// definitions' shortnames. Caller-supplied mappings take precedence.
var builtinAliases = map[string]string{
	"hat.nvg.item":                  "nightvisiongoggles",
	"night.vision.goggles":          "nightvisiongoggles",
	"extendedmags.item":             "weapon.mod.extendedmags",
	"muzzlebooster.item":            "weapon.mod.muzzleboost",
	"muzzlebrake.item":              "weapon.mod.muzzlebrake",
	"flashlightmod.item":            "weapon.mod.flashlight",
	"holosight.item":                "weapon.mod.holosight",
	"lasersight.item":               "weapon.mod.lasersight",
	"fishing_rod.item":              "fishingrod.handmade",
	"binoculars.item":               "tool.binoculars",
	"landmine.item":                 "trap.landmine",
	"hc_revolver.item":              "revolver.hc",
	"nailgunnail.item":              "ammo.nailgun.nails",
	"fireplace.item":                "fireplace.stone",
	"detonator.item":                "rf.detonator",
	"mp5.item":                      "smg.mp5",
	"rocket_launcher.item":          "rocket.launcher",
	"spas12.item":                   "shotgun.spas12",
	"SmartSwitch.item":              "smart.switch",
	"SmartAlarm.item":               "smart.alarm",
	"electricfurnace.item":          "electric.furnace",
	"poncho.hide.item":              "attire.hide.poncho",
	"HideVest.item":                 "attire.hide.vest",
	"pants.hide.item":               "attire.hide.pants",
	"HideBoots.item":                "attire.hide.boots",
	"Hazmat_Suit.item":              "hazmatsuit",
	"woodenshield.item":             "wooden.shield",
	"vendingmachine.item":           "vending.machine",
	"waterpurifier.item":            "water.purifier",
	"wall.external.high.wood.item":  "wall.external.high",
	"repair_bench.item":             "box.repair.bench",
	"flashlight.item":               "flashlight.held",
	"ammo_rifle_fire.item":          "ammo.rifle.incendiary",
	"smg.item":                      "smg.2",
}
